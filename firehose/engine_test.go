package firehose_test

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qdl "github.com/moffa90/go-qdl"
	"github.com/moffa90/go-qdl/action"
	"github.com/moffa90/go-qdl/firehose"
	"github.com/moffa90/go-qdl/qdltest"
)

// payloadRecorder records the size of every raw payload write.
type payloadRecorder struct {
	qdl.Transport
	chunks []int
}

func (r *payloadRecorder) Write(p []byte, eot bool) (int, error) {
	if !bytes.HasPrefix(p, []byte("<?xml")) {
		r.chunks = append(r.chunks, len(p))
	}
	return r.Transport.Write(p, eot)
}

// mute accepts every write and never answers.
type mute struct{ writes int }

func (m *mute) Read(p []byte, timeout time.Duration) (int, error) {
	return 0, &qdl.TransportError{Op: "bulk read", Err: qdl.ErrTimeout}
}

func (m *mute) Write(p []byte, eot bool) (int, error) {
	m.writes++
	return len(p), nil
}

func run(t *testing.T, dev qdl.Transport, store *action.Store, opts ...firehose.Option) error {
	t.Helper()
	opts = append([]firehose.Option{firehose.WithBootDelay(0)}, opts...)
	return firehose.New(dev, opts...).Run(context.Background(), store)
}

func randomData(n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(int64(n))).Read(b)
	return b
}

func TestRunSinglePatch(t *testing.T) {
	dev := qdltest.New(qdltest.WithFirehoseOnly())
	store := action.NewStore(&action.Patch{
		SectorSize:  512,
		ByteOffset:  "0",
		Filename:    "DISK",
		SizeInBytes: 8,
		StartSector: "0",
		Value:       "0",
		What:        "xbl",
	})

	require.NoError(t, run(t, dev, store))

	assert.Equal(t, []string{"configure", "patch", "power"}, dev.CommandNames())
	assert.Empty(t, dev.Payloads())
	assert.Empty(t, dev.Failures())
}

func TestRunProgramPayload(t *testing.T) {
	data := randomData(40960)
	dev := qdltest.New(qdltest.WithFirehoseOnly())
	rec := &payloadRecorder{Transport: dev}

	store := action.NewStore(&action.Program{
		Label:       "boot",
		Filename:    "boot.img",
		Data:        data,
		SectorSize:  4096,
		NumSectors:  10,
		StartSector: "0",
	})

	require.NoError(t, run(t, rec, store, firehose.WithMaxPayloadSize(16384)))

	payloads := dev.Payloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, data, payloads[0].Data)
	assert.Equal(t, []int{16384, 16384, 8192}, rec.chunks)

	sectors, _ := payloads[0].Command.Get("num_partition_sectors")
	assert.Equal(t, "10", sectors)
	assert.Empty(t, dev.Failures())
}

func TestRunProgramSizing(t *testing.T) {
	data := randomData(3 * 4096)

	tests := []struct {
		name    string
		program action.Program
		want    []byte
		sectors string
	}{
		{
			name:    "partial sector padded",
			program: action.Program{Data: data[:5000], SectorSize: 4096},
			want:    append(append([]byte(nil), data[:5000]...), make([]byte, 8192-5000)...),
			sectors: "2",
		},
		{
			name:    "truncated to partition",
			program: action.Program{Data: data, SectorSize: 4096, NumSectors: 2},
			want:    data[:8192],
			sectors: "2",
		},
		{
			name:    "file sector offset",
			program: action.Program{Data: data, SectorSize: 4096, FileSectorOffset: 1},
			want:    data[4096:],
			sectors: "2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := qdltest.New(qdltest.WithFirehoseOnly())
			p := tt.program
			p.StartSector = "0"

			require.NoError(t, run(t, dev, action.NewStore(&p)))

			payloads := dev.Payloads()
			require.Len(t, payloads, 1)
			assert.Equal(t, tt.want, payloads[0].Data)

			sectors, _ := payloads[0].Command.Get("num_partition_sectors")
			assert.Equal(t, tt.sectors, sectors)
		})
	}
}

func TestRunStopsAtFailedAction(t *testing.T) {
	newStore := func() *action.Store {
		return action.NewStore(
			&action.Patch{SectorSize: 512, ByteOffset: "0", Filename: "DISK", StartSector: "0", Value: "0"},
			&action.Program{Data: randomData(512), SectorSize: 512, StartSector: "1"},
			&action.Patch{SectorSize: 512, ByteOffset: "0", Filename: "DISK", StartSector: "2", Value: "0"},
			&action.Program{Data: randomData(1024), SectorSize: 512, StartSector: "3"},
		)
	}
	kinds := []string{"patch", "program", "patch", "program"}

	for k := 0; k < 4; k++ {
		dev := qdltest.New(qdltest.WithFirehoseOnly(), qdltest.WithNakAt(k))

		err := run(t, dev, newStore())
		require.Error(t, err)

		var failed *qdl.ActionFailedError
		require.True(t, errors.As(err, &failed))
		assert.Equal(t, k, failed.Index)

		var nak *firehose.NakError
		require.True(t, errors.As(err, &nak))
		assert.Equal(t, kinds[k], nak.Command)

		cmds := dev.Commands()
		require.Len(t, cmds, k+2, "configure plus actions 0..k")
		assert.Equal(t, "configure", cmds[0].Name)
		for i, cmd := range cmds[1:] {
			assert.Equal(t, kinds[i], cmd.Name, "command %d", i)
			sector, _ := cmd.Get("start_sector")
			assert.Equal(t, strconv.Itoa(i), sector, "command %d", i)
		}
		assert.NotContains(t, dev.CommandNames(), "power")
	}
}

func TestRunDeviceLogs(t *testing.T) {
	dev := qdltest.New(
		qdltest.WithFirehoseOnly(),
		qdltest.WithBootLog("loader started", "storage ready"),
		qdltest.WithLogsPerResponse(2),
		qdltest.WithResponseChunk(7),
	)

	var logs []string
	store := action.NewStore(&action.Program{Label: "boot", Data: randomData(4096), SectorSize: 4096, StartSector: "0"})
	require.NoError(t, run(t, dev, store, firehose.WithLogHandler(func(msg string) {
		logs = append(logs, msg)
	})))

	require.True(t, len(logs) > 2)
	assert.Equal(t, []string{"loader started", "storage ready"}, logs[:2])
	// configure, program, program payload and power each carry two records
	assert.Len(t, logs, 2+4*2)
	assert.Empty(t, dev.Failures())
}

func TestRunConfigureNegotiation(t *testing.T) {
	t.Run("device proposes smaller payload", func(t *testing.T) {
		dev := qdltest.New(qdltest.WithFirehoseOnly(), qdltest.WithProposedPayload(16384))
		eng := firehose.New(dev, firehose.WithBootDelay(0), firehose.WithPowerAction(firehose.PowerNone))

		require.NoError(t, eng.Run(context.Background(), action.NewStore()))
		assert.Equal(t, 16384, eng.MaxPayloadSize())

		cmds := dev.Commands()
		require.Len(t, cmds, 2)
		first, _ := cmds[0].Get("MaxPayloadSizeToTargetInBytes")
		second, _ := cmds[1].Get("MaxPayloadSizeToTargetInBytes")
		assert.Equal(t, "1048576", first)
		assert.Equal(t, "16384", second)
	})

	t.Run("device supports larger payload", func(t *testing.T) {
		dev := qdltest.New(qdltest.WithFirehoseOnly(), qdltest.WithSupportedPayload(2*1024*1024))
		eng := firehose.New(dev, firehose.WithBootDelay(0), firehose.WithPowerAction(firehose.PowerNone))

		require.NoError(t, eng.Run(context.Background(), action.NewStore()))
		assert.Equal(t, 2*1024*1024, eng.MaxPayloadSize())
		assert.Equal(t, []string{"configure", "configure"}, dev.CommandNames())
	})

	t.Run("accepted as requested", func(t *testing.T) {
		dev := qdltest.New(qdltest.WithFirehoseOnly())
		eng := firehose.New(dev, firehose.WithBootDelay(0), firehose.WithPowerAction(firehose.PowerNone))

		require.NoError(t, eng.Run(context.Background(), action.NewStore()))
		assert.Equal(t, firehose.DefaultMaxPayloadSize, eng.MaxPayloadSize())
		assert.Equal(t, []string{"configure"}, dev.CommandNames())
	})
}

func TestRunRawModeMissing(t *testing.T) {
	dev := qdltest.New(qdltest.WithFirehoseOnly(), qdltest.WithRawModeOff())
	store := action.NewStore(&action.Program{Data: randomData(512), SectorSize: 512, StartSector: "0"})

	err := run(t, dev, store)
	require.Error(t, err)
	assert.True(t, errors.Is(err, qdl.ErrProtocol))

	var failed *qdl.ActionFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, 0, failed.Index)
	assert.Empty(t, dev.Payloads())
}

func TestRunDeclaredRawSize(t *testing.T) {
	program := func() *action.Store {
		return action.NewStore(&action.Program{Data: randomData(5000), SectorSize: 512, StartSector: "0"})
	}

	t.Run("matching", func(t *testing.T) {
		dev := qdltest.New(qdltest.WithFirehoseOnly(), qdltest.WithDeclaredRawSize())
		require.NoError(t, run(t, dev, program()))

		payloads := dev.Payloads()
		require.Len(t, payloads, 1)
		assert.Len(t, payloads[0].Data, 10*512)
	})

	t.Run("mismatch", func(t *testing.T) {
		dev := qdltest.New(qdltest.WithFirehoseOnly(), qdltest.WithRawSizeSkew(-512))
		err := run(t, dev, program())
		require.Error(t, err)
		assert.True(t, errors.Is(err, qdl.ErrProtocol))

		var failed *qdl.ActionFailedError
		require.True(t, errors.As(err, &failed))
		assert.Equal(t, 0, failed.Index)

		payloads := dev.Payloads()
		require.Len(t, payloads, 1)
		assert.Empty(t, payloads[0].Data, "nothing streamed after a size mismatch")
	})
}

func TestRunClosingSequence(t *testing.T) {
	program := func(label string, partition int) *action.Program {
		return &action.Program{Label: label, Data: randomData(512), SectorSize: 512, Partition: partition, StartSector: "0"}
	}
	ufs := &action.ProvisionUFS{
		Common:   action.UFSCommon{NumberLU: 2},
		LUs:      []action.UFSLogicalUnit{{LUNum: 0}, {LUNum: 1}},
		Epilogue: action.UFSEpilogue{Commit: true},
	}

	tests := []struct {
		name  string
		store *action.Store
		opts  []firehose.Option
		want  []string
	}{
		{
			name:  "bootable partition",
			store: action.NewStore(program("boot", 0), program("xbl", 1)),
			want:  []string{"configure", "program", "program", "setbootablestoragedrive", "power"},
		},
		{
			name:  "ambiguous bootable partition",
			store: action.NewStore(program("xbl_a", 1), program("sbl1", 2)),
			want:  []string{"configure", "program", "program", "power"},
		},
		{
			name:  "provisioning",
			store: action.NewStore(ufs),
			want:  []string{"configure", "ufs", "ufs", "ufs", "ufs", "power"},
		},
		{
			name:  "no power",
			store: action.NewStore(),
			opts:  []firehose.Option{firehose.WithPowerAction(firehose.PowerNone)},
			want:  []string{"configure"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := qdltest.New(qdltest.WithFirehoseOnly())
			require.NoError(t, run(t, dev, tt.store, tt.opts...))
			assert.Equal(t, tt.want, dev.CommandNames())
		})
	}

	t.Run("command values", func(t *testing.T) {
		dev := qdltest.New(qdltest.WithFirehoseOnly())
		store := action.NewStore(program("xbl", 1), ufs)
		require.NoError(t, run(t, dev, store, firehose.WithPowerAction(firehose.PowerOff)))

		cmds := dev.Commands()
		n := len(cmds)
		require.True(t, n >= 3)

		bootable, _ := cmds[n-3].Get("value")
		commit, _ := cmds[n-2].Get("commit")
		power, _ := cmds[n-1].Get("value")
		assert.Equal(t, "1", bootable)
		assert.Equal(t, "1", commit)
		assert.Equal(t, "off", power)
	})
}

func TestRunProgress(t *testing.T) {
	dev := qdltest.New(qdltest.WithFirehoseOnly())
	store := action.NewStore(
		&action.Patch{SectorSize: 512, ByteOffset: "0", Filename: "DISK", StartSector: "0", Value: "0"},
		&action.Program{Label: "boot", Data: randomData(8192), SectorSize: 4096, StartSector: "0"},
	)

	var updates []qdl.Progress
	require.NoError(t, run(t, dev, store,
		firehose.WithMaxPayloadSize(4096),
		firehose.WithProgressCallback(func(p qdl.Progress) { updates = append(updates, p) }),
	))

	var last qdl.Progress
	for _, p := range updates {
		if p.Phase == qdl.PhaseFlashing && p.BytesTotal > 0 {
			last = p
		}
	}
	assert.Equal(t, 2, last.Current)
	assert.Equal(t, 2, last.Total)
	assert.Equal(t, int64(8192), last.BytesWritten)
	assert.Equal(t, float64(100), last.Percentage())
	assert.Equal(t, qdl.PhaseComplete, updates[len(updates)-1].Phase)
}

func TestRunFailures(t *testing.T) {
	t.Run("unknown storage", func(t *testing.T) {
		dev := qdltest.New(qdltest.WithFirehoseOnly())
		err := run(t, dev, action.NewStore(), firehose.WithStorage("floppy"))
		assert.True(t, errors.Is(err, qdl.ErrConfig))
		assert.Empty(t, dev.Commands())
	})

	t.Run("unknown power action", func(t *testing.T) {
		err := run(t, qdltest.New(qdltest.WithFirehoseOnly()), action.NewStore(), firehose.WithPowerAction("hibernate"))
		assert.True(t, errors.Is(err, qdl.ErrConfig))
	})

	t.Run("nil store", func(t *testing.T) {
		err := run(t, qdltest.New(qdltest.WithFirehoseOnly()), nil)
		assert.True(t, errors.Is(err, qdl.ErrConfig))
	})

	t.Run("silent device", func(t *testing.T) {
		dev := &mute{}
		err := run(t, dev, action.NewStore(), firehose.WithCommandTimeout(time.Millisecond))
		require.Error(t, err)
		assert.True(t, errors.Is(err, qdl.ErrTimeout))
		assert.Equal(t, 1, dev.writes, "configure is never retried")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		dev := qdltest.New(qdltest.WithFirehoseOnly())
		err := firehose.New(dev, firehose.WithBootDelay(time.Hour)).Run(ctx, action.NewStore())
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Empty(t, dev.Commands())
	})

	t.Run("sector larger than payload", func(t *testing.T) {
		dev := qdltest.New(qdltest.WithFirehoseOnly())
		store := action.NewStore(&action.Program{Data: randomData(8192), SectorSize: 8192, StartSector: "0"})
		err := run(t, dev, store, firehose.WithMaxPayloadSize(4096))

		var failed *qdl.ActionFailedError
		require.True(t, errors.As(err, &failed))
		assert.Equal(t, []string{"configure"}, dev.CommandNames())
	})

	t.Run("nil transport", func(t *testing.T) {
		assert.Panics(t, func() { firehose.New(nil) })
	})
}
