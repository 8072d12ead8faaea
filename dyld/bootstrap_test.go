package dyld_test

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/dyldsym/dyld"
	"github.com/wnxd/dyldsym/internal/hosttest"
	"github.com/wnxd/dyldsym/memory"
)

var legacy = dyld.ABI{
	Name:       "legacy",
	Slide:      "__ZNK11ImageLoader8getSlideEv",
	MachHeader: "__ZNK11ImageLoader10machHeaderEv",
}

func newLoader(t *testing.T, arch memory.Arch, abis ...dyld.ABI) *hosttest.Loader {
	t.Helper()
	l, err := hosttest.NewLoader(hosttest.Dyld(arch, abis...))
	require.NoError(t, err)
	return l
}

func TestInspect(t *testing.T) {
	for _, arch := range []memory.Arch{memory.ARCH_ARM, memory.ARCH_ARM64, memory.ARCH_X86, memory.ARCH_X86_64} {
		t.Run(arch.String(), func(t *testing.T) {
			img := hosttest.Dyld(arch, dyld.ImageLoaderMachO)
			l, err := hosttest.NewLoader(img)
			require.NoError(t, err)

			acc, err := dyld.Inspect(l, dyld.DefaultABIs)
			require.NoError(t, err)
			require.Equal(t, dyld.ImageLoaderMachO, acc.ABI)
			require.Equal(t, img.Header(), acc.DyldHeader)
			require.Equal(t, int64(hosttest.DyldSlide), acc.DyldSlide)

			slide, machHeader := acc.Routines()
			wantSlide, _ := img.Address(dyld.ImageLoaderMachO.Slide)
			wantHeader, _ := img.Address(dyld.ImageLoaderMachO.MachHeader)
			require.Equal(t, wantSlide, slide)
			require.Equal(t, wantHeader, machHeader)
			if arch == memory.ARCH_ARM {
				require.Equal(t, uint64(1), slide&1)
			}
		})
	}
}

func TestInspectABIOrder(t *testing.T) {
	l := newLoader(t, memory.ARCH_ARM64, legacy)
	l.ServeABI(legacy)

	_, err := dyld.Inspect(l, dyld.DefaultABIs)
	require.True(t, errors.Is(err, dyld.ErrAccessorsNotFound))

	acc, err := dyld.Inspect(l, []dyld.ABI{dyld.ImageLoaderMachO, legacy})
	require.NoError(t, err)
	require.Equal(t, "legacy", acc.ABI.Name)

	require.NoError(t, l.Load(hosttest.Library("/usr/lib/liba.dylib", memory.ARCH_ARM64, 0x100000000, 0x1000)))
	h, err := l.Open("/usr/lib/liba.dylib")
	require.NoError(t, err)
	header, err := acc.MachHeader(h)
	require.NoError(t, err)
	require.Equal(t, uint64(0x100001000), header)
	slide, err := acc.Slide(h)
	require.NoError(t, err)
	require.Equal(t, int64(0x1000), slide)
}

func TestBootstrapOnce(t *testing.T) {
	l := newLoader(t, memory.ARCH_ARM64, dyld.ImageLoaderMachO)
	m := dyld.NewMetrics(prometheus.NewRegistry())
	b := dyld.NewBootstrap(l, dyld.Options{Logger: hosttest.Logger(t), Metrics: m})

	const n = 32
	results := make([]*dyld.Accessors, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = b.Accessors()
		}(i)
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, b.Runs())
	require.Equal(t, float64(1), testutil.ToFloat64(m.Bootstraps))
	require.Equal(t, float64(0), testutil.ToFloat64(m.BootstrapFailures))
	for _, acc := range results {
		require.Same(t, results[0], acc)
	}
}

func TestBootstrapFailure(t *testing.T) {
	l := newLoader(t, memory.ARCH_X86_64)
	m := dyld.NewMetrics(nil)
	b := dyld.NewBootstrap(l, dyld.Options{Logger: hosttest.Logger(t), Metrics: m})

	for i := 0; i < 2; i++ {
		require.Panics(t, func() { b.Accessors() })
	}
	require.Equal(t, 1, b.Runs())
	require.Equal(t, float64(1), testutil.ToFloat64(m.BootstrapFailures))
}

func TestAllImageInfosLayout(t *testing.T) {
	tests := []struct {
		arch memory.Arch
		off  uint64
	}{
		{memory.ARCH_ARM, 20},
		{memory.ARCH_X86_64, 32},
	}
	for _, tt := range tests {
		t.Run(tt.arch.String(), func(t *testing.T) {
			space := memory.NewSpace(tt.arch)
			require.NoError(t, space.Map(0x1000, 0x100))
			require.NoError(t, dyld.WriteAllImageInfos(space, 0x1000, &dyld.AllImageInfos{
				Version:              15,
				DyldImageLoadAddress: 0x1fe00000,
			}))
			b, err := space.MemRead(0x1000+tt.off, 4)
			require.NoError(t, err)
			require.Equal(t, []byte{0x00, 0x00, 0xe0, 0x1f}, b)

			infos, err := dyld.ReadAllImageInfos(space, 0x1000)
			require.NoError(t, err)
			require.Equal(t, uintptr(0x1fe00000), infos.DyldImageLoadAddress)
			require.Equal(t, uint32(15), infos.Version)
		})
	}
}
