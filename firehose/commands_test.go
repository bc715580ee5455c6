package firehose

import (
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-qdl/action"
)

func TestCommandEncoding(t *testing.T) {
	tests := []struct {
		name string
		cmd  *Command
	}{
		{"configure", BuildConfigure("ufs", DefaultMaxPayloadSize, false)},
		{"configure_skip_init", BuildConfigure("emmc", 16384, true)},
		{"program", BuildProgram(&action.Program{
			Label:       "xbl_a",
			Filename:    "xbl.elf",
			SectorSize:  4096,
			Partition:   1,
			StartSector: "6",
		}, 900)},
		{"patch", BuildPatch(&action.Patch{
			SectorSize:  4096,
			ByteOffset:  "40",
			Filename:    "DISK",
			Partition:   0,
			SizeInBytes: 8,
			StartSector: "6",
			Value:       "NUM_DISK_SECTORS-1.",
			What:        "not sent",
		})},
		{"ufs_common", BuildUFSCommon(action.UFSCommon{
			NumberLU:        2,
			BootEnable:      true,
			InitPowerMode:   1,
			HighPriorityLUN: 0x7f,
		})},
		{"ufs_body", BuildUFSBody(action.UFSLogicalUnit{
			LUNum:            1,
			Enable:           true,
			BootLunID:        1,
			SizeInKB:         8192,
			MemoryType:       3,
			LogicalBlockSize: 12,
			ProvisioningType: 2,
			Description:      "LUN1",
		})},
		{"ufs_epilogue", BuildUFSEpilogue(action.UFSEpilogue{Commit: true})},
		{"setbootable", BuildSetBootable(1)},
		{"power", BuildPower(PowerReset)},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := tt.cmd.Encode()
			require.NoError(t, err)
			g.Assert(t, tt.name, doc)
		})
	}
}

func TestProgramRoundTrip(t *testing.T) {
	programs := []*action.Program{
		{SectorSize: 512, Partition: 0, StartSector: "0", Filename: "a.bin"},
		{SectorSize: 4096, Partition: 5, StartSector: "NUM_DISK_SECTORS-5.", Filename: "gpt_backup5.bin"},
		{SectorSize: 4096, Partition: 2, StartSector: "131072"},
	}

	for _, p := range programs {
		doc, err := BuildProgram(p, 10).Encode()
		require.NoError(t, err)

		cmd, err := ParseCommand(doc)
		require.NoError(t, err)
		assert.Equal(t, CmdProgram, cmd.Name)

		get := func(name string) string {
			v, ok := cmd.Get(name)
			require.True(t, ok, name)
			return v
		}
		assert.Equal(t, p.StartSector, get("start_sector"))
		assert.Equal(t, "10", get("num_partition_sectors"))
		assert.Equal(t, p.SectorSize, mustAtoi(t, get("SECTOR_SIZE_IN_BYTES")))
		assert.Equal(t, p.Partition, mustAtoi(t, get("physical_partition_number")))

		_, hasName := cmd.Get("filename")
		assert.Equal(t, p.Filename != "", hasName)
	}
}

func TestParseCommandErrors(t *testing.T) {
	_, err := ParseCommand([]byte(`<other><program/></other>`))
	assert.Error(t, err)

	_, err = ParseCommand([]byte(`<data></data>`))
	assert.Error(t, err)
}

func TestParseRecords(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    []Record
		wantErr bool
	}{
		{
			name: "log then ack",
			doc: `<?xml version="1.0" encoding="UTF-8" ?>
<data>
<log value="INFO: Calling handler for configure" />
<response value="ACK" MaxPayloadSizeToTargetInBytes="1048576" />
</data>`,
			want: []Record{
				{Kind: RecordLog, Value: "INFO: Calling handler for configure", Attrs: map[string]string{"value": "INFO: Calling handler for configure"}},
				{Kind: RecordResponse, Value: ValueACK, Attrs: map[string]string{"value": "ACK", "MaxPayloadSizeToTargetInBytes": "1048576"}},
			},
		},
		{
			name: "rawmode",
			doc:  `<data><response value="ACK" rawmode="true"/></data>`,
			want: []Record{
				{Kind: RecordResponse, Value: ValueACK, RawMode: true, Attrs: map[string]string{"value": "ACK", "rawmode": "true"}},
			},
		},
		{
			name: "nak",
			doc:  `<data><response value="NAK" rawmode="false"/></data>`,
			want: []Record{
				{Kind: RecordResponse, Value: ValueNAK, Attrs: map[string]string{"value": "NAK", "rawmode": "false"}},
			},
		},
		{
			name: "unknown elements skipped",
			doc:  `<data><sig value="1"/></data>`,
			want: nil,
		},
		{name: "missing value", doc: `<data><response rawmode="true"/></data>`, wantErr: true},
		{name: "unknown value", doc: `<data><response value="MAYBE"/></data>`, wantErr: true},
		{name: "bad rawmode", doc: `<data><response value="ACK" rawmode="yes"/></data>`, wantErr: true},
		{name: "malformed", doc: `<data><response value="ACK"</data>`, wantErr: true},
		{name: "wrong root", doc: `<log value="x"/>`, wantErr: true},
		{name: "unterminated", doc: `<data><log value="x"/>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecords([]byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitDocument(t *testing.T) {
	buf := []byte(`<data><log value="a"/></data><data><response value="ACK"/></da`)

	doc, rest, ok := splitDocument(buf)
	require.True(t, ok)
	assert.Equal(t, `<data><log value="a"/></data>`, string(doc))

	_, rest2, ok := splitDocument(rest)
	assert.False(t, ok)
	assert.Equal(t, rest, rest2)
}

func TestNakError(t *testing.T) {
	assert.Equal(t, "device rejected patch", (&NakError{Command: CmdPatch}).Error())
	err := &NakError{Command: CmdProgram, Logs: []string{"first", "ERROR: bad sector"}}
	assert.Equal(t, "device rejected program: ERROR: bad sector", err.Error())
	assert.True(t, IsNakError(err))
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
