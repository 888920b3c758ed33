package smartllm

import (
	"context"
	"log/slog"
	"time"

	"github.com/Harsha2sai/Maya-One/pkg/provider/llm"
)

// ProbeStream wraps in with a first-chunk timeout: if no chunk (including a
// final empty one) arrives within timeout, or the stream closes having
// emitted nothing at all, the returned channel receives a single Chunk
// with FinishReason "error" and then closes. Subsequent chunks, once the
// first has arrived, are forwarded without a timeout. Grounded on
// probes/runtime/probe_engine.py's StreamProbe.
func ProbeStream(ctx context.Context, in <-chan llm.Chunk, timeout time.Duration) <-chan llm.Chunk {
	out := make(chan llm.Chunk)

	go func() {
		defer close(out)

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case chunk, ok := <-in:
			if !ok {
				slog.Error("stream probe: closed without emitting any chunks")
				out <- errorChunk("stream ended without emitting any chunks")
				return
			}
			out <- chunk
		case <-timer.C:
			slog.Error("stream probe: first chunk timeout", "timeout", timeout)
			out <- errorChunk("stream timeout: no chunks received within deadline")
			return
		case <-ctx.Done():
			return
		}

		for chunk := range in {
			out <- chunk
		}
	}()

	return out
}

func errorChunk(message string) llm.Chunk {
	return llm.Chunk{Text: message, FinishReason: "error"}
}
