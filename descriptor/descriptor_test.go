package descriptor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qdl "github.com/moffa90/go-qdl"
	"github.com/moffa90/go-qdl/action"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Kind
	}{
		{"patch", `<?xml version="1.0"?><patches><patch/></patches>`, Patch},
		{"program", "<data>\n  <!-- c -->\n  <program/>\n</data>", Program},
		{"ufs", `<data><ufs bNumberLU="1"/></data>`, UFS},
		{"contents", `<contents/>`, Contents},
		{"empty data", `<data></data>`, Unknown},
		{"other child", `<data><erase/></data>`, Unknown},
		{"program after erase", `<data><erase start_sector="0"/><program filename="a.bin"/></data>`, Program},
		{"ufs after nested read", `<data><read><x/></read><ufs bNumberLU="1"/></data>`, UFS},
		{"nested program only", `<data><read><program/></read></data>`, Unknown},
		{"other root", `<configuration/>`, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Classify(strings.NewReader(""))
	assert.Error(t, err)
}

func TestDetect(t *testing.T) {
	kind, err := Detect("testdata/provision.xml")
	require.NoError(t, err)
	assert.Equal(t, UFS, kind)
	assert.Equal(t, "ufs", kind.String())

	_, err = Detect("testdata/missing.xml")
	assert.Error(t, err)
}

func TestLoadPatches(t *testing.T) {
	f, err := os.Open("testdata/patch0.xml")
	require.NoError(t, err)
	defer f.Close()

	acts, err := LoadPatches(f)
	require.NoError(t, err)
	require.Len(t, acts, 2, "only DISK patches are kept")

	p := acts[0].(*action.Patch)
	assert.Equal(t, &action.Patch{
		SectorSize:  4096,
		ByteOffset:  "40",
		Filename:    "DISK",
		Partition:   0,
		SizeInBytes: 8,
		StartSector: "6",
		Value:       "NUM_DISK_SECTORS-1.",
		What:        "Update last partition 'userdata' with actual size in Primary Header.",
	}, p)
	assert.Equal(t, "1", acts[1].(*action.Patch).StartSector)
}

func TestLoadPatchesErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		errMsg string
	}{
		{
			name:   "missing attribute",
			input:  `<patches><patch SECTOR_SIZE_IN_BYTES="512" filename="DISK"/></patches>`,
			errMsg: "missing",
		},
		{
			name:   "bad number",
			input:  `<patches><patch SECTOR_SIZE_IN_BYTES="big" byte_offset="0" filename="DISK" physical_partition_number="0" size_in_bytes="8" start_sector="0" value="0"/></patches>`,
			errMsg: `invalid number "big"`,
		},
		{
			name:   "malformed",
			input:  `<patches><patch`,
			errMsg: "malformed xml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPatches(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadPrograms(t *testing.T) {
	f, err := os.Open("testdata/rawprogram1.xml")
	require.NoError(t, err)
	defer f.Close()

	acts, err := LoadPrograms(f, "testdata")
	require.NoError(t, err)
	require.Len(t, acts, 2, "entries without a filename are skipped")

	xbl := acts[0].(*action.Program)
	assert.Equal(t, "xbl_a", xbl.Label)
	assert.Equal(t, filepath.Join("testdata", "xbl.elf"), xbl.Path)
	assert.Equal(t, 4096, xbl.SectorSize)
	assert.Equal(t, int64(900), xbl.NumSectors)
	assert.Equal(t, 1, xbl.Partition)
	assert.Equal(t, "6", xbl.StartSector)

	gpt := acts[1].(*action.Program)
	assert.Equal(t, "NUM_DISK_SECTORS-5.", gpt.StartSector)
}

func TestLoadProgramsResolution(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "boot.img")
	require.NoError(t, os.WriteFile(abs, []byte("boot"), 0o644))

	entry := func(name string) string {
		return `<data><program SECTOR_SIZE_IN_BYTES="4096" file_sector_offset="0" filename="` + name +
			`" label="boot" num_partition_sectors="0" physical_partition_number="0" start_sector="0"/></data>`
	}

	t.Run("as given", func(t *testing.T) {
		acts, err := LoadPrograms(strings.NewReader(entry(abs)), "")
		require.NoError(t, err)
		assert.Equal(t, abs, acts[0].(*action.Program).Path)
	})

	t.Run("include dir first", func(t *testing.T) {
		acts, err := LoadPrograms(strings.NewReader(entry("boot.img")), dir)
		require.NoError(t, err)
		assert.Equal(t, abs, acts[0].(*action.Program).Path)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := LoadPrograms(strings.NewReader(entry("nowhere.img")), dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nowhere.img not found")
	})
}

func TestLoadUFS(t *testing.T) {
	f, err := os.Open("testdata/provision.xml")
	require.NoError(t, err)
	defer f.Close()

	u, err := LoadUFS(f, false)
	require.NoError(t, err)

	assert.Equal(t, uint(2), u.Common.NumberLU)
	assert.True(t, u.Common.BootEnable)
	assert.Equal(t, uint(0x7f), u.Common.HighPriorityLUN)
	require.Len(t, u.LUs, 2)
	assert.Equal(t, uint(1), u.LUs[1].LUNum)
	assert.Equal(t, uint(8192), u.LUs[1].SizeInKB)
	assert.Equal(t, uint(12), u.LUs[1].LogicalBlockSize)
	assert.Equal(t, "LUN1", u.LUs[1].Description)
	assert.False(t, u.Epilogue.Commit)
}

func TestLoadUFSErrors(t *testing.T) {
	common := `<ufs bNumberLU="1" bBootEnable="1" bDescrAccessEn="0" bInitPowerMode="1" bHighPriorityLUN="0" bSecureRemovalType="0" bInitActiveICCLevel="0" wPeriodicRTCUpdate="0" bConfigDescrLock="0"/>`
	body := `<ufs LUNum="0" bLUEnable="1" bBootLunID="0" size_in_kb="0" bDataReliability="0" bLUWriteProtect="0" bMemoryType="0" bLogicalBlockSize="12" bProvisioningType="2" wContextCapabilities="0"/>`
	epilogue := `<ufs LUNtoGrow="0" commit="1"/>`

	tests := []struct {
		name     string
		input    string
		finalize bool
		errMsg   string
	}{
		{"commit without finalize", common + body + epilogue, false, "does not match"},
		{"finalize without commit", common + body + `<ufs LUNtoGrow="0" commit="0"/>`, true, "does not match"},
		{"no common", body + epilogue, true, "missing common"},
		{"no logical units", common + epilogue, true, "no logical units"},
		{"no epilogue", common + body, true, "missing epilogue"},
		{"duplicate common", common + common + body + epilogue, true, "duplicate common"},
		{"unknown entry", common + `<ufs foo="1"/>`, true, "unrecognized"},
		{"bad boolean", common + body + `<ufs LUNtoGrow="0" commit="yes"/>`, true, "invalid boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadUFS(strings.NewReader("<data>"+tt.input+"</data>"), tt.finalize)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	u, err := LoadUFS(strings.NewReader("<data>"+common+body+epilogue+"</data>"), true)
	require.NoError(t, err)
	assert.True(t, u.Epilogue.Commit)
}

func TestLoad(t *testing.T) {
	// Source files resolve against the include dir regardless of the
	// working directory.
	store, err := Load(
		[]string{"testdata/provision.xml", "testdata/rawprogram1.xml", "testdata/patch0.xml"},
		WithIncludeDir("testdata"),
	)
	require.NoError(t, err)
	assert.True(t, store.Frozen())

	kinds := []action.Kind{}
	for _, a := range store.Actions() {
		kinds = append(kinds, a.Kind())
	}
	assert.Equal(t, []action.Kind{
		action.KindProvisionUFS,
		action.KindProgram,
		action.KindProgram,
		action.KindPatch,
		action.KindPatch,
	}, kinds)
	assert.NotNil(t, store.Provisioning())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		file  string
	}{
		{"missing file", []string{"testdata/patch0.xml", "testdata/missing.xml"}, "testdata/missing.xml"},
		{"contents", []string{"testdata/contents.xml"}, "testdata/contents.xml"},
		{"unknown", []string{"testdata/xbl.elf"}, "testdata/xbl.elf"},
		{"program source missing", []string{"testdata/rawprogram1.xml"}, "testdata/rawprogram1.xml"},
		{"two ufs", []string{"testdata/provision.xml", "testdata/provision.xml"}, "testdata/provision.xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.paths)
			require.Error(t, err)
			assert.True(t, errors.Is(err, qdl.ErrConfig))

			var ce *qdl.ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.file, ce.File)
		})
	}
}
