package testbed

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/wippyai/hbctool/hasm"
	"github.com/wippyai/hbctool/hbc"
	"github.com/wippyai/hbctool/internal/fixture"
)

func TestConcurrent_SharedInput(t *testing.T) {
	const workers = 16

	inputs := make(map[uint32][]byte)
	for _, v := range hbc.SupportedVersions() {
		data, err := hbc.Encode(fixture.Sample(v), v)
		if err != nil {
			t.Fatalf("encode v%d: %v", v, err)
		}
		inputs[v] = data
	}

	var (
		wg       sync.WaitGroup
		failures atomic.Int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, data := range inputs {
				m, err := hbc.Decode(data)
				if err != nil {
					failures.Add(1)
					continue
				}
				var text bytes.Buffer
				if err := hasm.Render(m, &text); err != nil {
					failures.Add(1)
					continue
				}
				parsed, err := hasm.Parse(text.String())
				if err != nil {
					failures.Add(1)
					continue
				}
				out, err := hbc.Encode(parsed, parsed.Version)
				if err != nil || !bytes.Equal(out, data) {
					failures.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if n := failures.Load(); n > 0 {
		t.Errorf("%d of %d round trips failed", n, workers*len(inputs))
	}
}
