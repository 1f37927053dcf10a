// Package indexplugin hosts the Escalate stage's optional inverted-index
// collaborator as a sandboxed WASM module via wazero, rather than an
// in-process Go plugin. Any Tantivy-backed or other index implementation
// can be swapped in without a recompile, as long as the guest module
// exports the alloc/query/free ABI documented below.
package indexplugin

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Plugin hosts one loaded WASM index module. The guest must export:
//
//	alloc(size uint32) uint32          -- returns a pointer into guest memory
//	free(ptr, size uint32)
//	query(ptr, len uint32) uint64      -- packed (result_ptr<<32 | result_len)
//
// query's result is a newline-separated list of repo-relative paths.
type Plugin struct {
	runtime wazero.Runtime
	module  api.Module
	mu      sync.Mutex
}

// Load reads the WASM binary at path and instantiates it. A nil Plugin with
// a non-nil error means the Escalate stage should skip the index step
// entirely rather than fail the cycle -- the collaborator is optional.
func Load(ctx context.Context, path string) (*Plugin, error) {
	bin, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("indexplugin: reading %s: %w", path, err)
	}

	runtime := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("indexplugin: instantiating WASI: %w", err)
	}

	compiled, err := runtime.CompileModule(ctx, bin)
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("indexplugin: compiling %s: %w", path, err)
	}

	mod, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithStdout(os.Stderr).WithStderr(os.Stderr))
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("indexplugin: instantiating %s: %w", path, err)
	}

	return &Plugin{runtime: runtime, module: mod}, nil
}

// Close releases the WASM runtime. Safe to call on a nil Plugin.
func (p *Plugin) Close(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.runtime.Close(ctx)
}

// Query implements cycle.IndexCollaborator: it copies term into guest
// memory, invokes the guest's query export, and decodes the returned
// newline-separated path list. Calls are serialized -- a wazero module
// instance is not safe for concurrent invocation.
func (p *Plugin) Query(ctx context.Context, term string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	alloc := p.module.ExportedFunction("alloc")
	free := p.module.ExportedFunction("free")
	query := p.module.ExportedFunction("query")
	if alloc == nil || free == nil || query == nil {
		return nil, fmt.Errorf("indexplugin: guest module missing alloc/free/query exports")
	}

	termBytes := []byte(term)
	allocRes, err := alloc.Call(ctx, uint64(len(termBytes)))
	if err != nil {
		return nil, fmt.Errorf("indexplugin: alloc: %w", err)
	}
	ptr := uint32(allocRes[0])
	defer free.Call(ctx, uint64(ptr), uint64(len(termBytes)))

	if !p.module.Memory().Write(ptr, termBytes) {
		return nil, fmt.Errorf("indexplugin: writing term to guest memory out of range")
	}

	packed, err := query.Call(ctx, uint64(ptr), uint64(len(termBytes)))
	if err != nil {
		return nil, fmt.Errorf("indexplugin: query: %w", err)
	}

	resultPtr := uint32(packed[0] >> 32)
	resultLen := uint32(packed[0])
	if resultLen == 0 {
		return nil, nil
	}
	defer free.Call(ctx, uint64(resultPtr), uint64(resultLen))

	data, ok := p.module.Memory().Read(resultPtr, resultLen)
	if !ok {
		return nil, fmt.Errorf("indexplugin: reading query result out of range")
	}
	return splitLines(data), nil
}

// splitLines turns a newline-separated byte blob into a path list, dropping
// a trailing empty segment so a guest that terminates its output with "\n"
// doesn't produce a spurious empty path.
func splitLines(data []byte) []string {
	var out []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				out = append(out, string(data[start:i]))
			}
			start = i + 1
		}
	}
	if start < len(data) {
		out = append(out, string(data[start:]))
	}
	return out
}
