package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/dom/snapshot"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/storage"
)

func init() {
	logger.Replace(zap.NewNop())
}

const savedResults = `<html><body><main><ul>
<li class="entity-result"><a href="https://www.linkedin.com/in/maria/?miniProfileUrn=x"><span aria-hidden="true">Maria Silva</span></a><button>Connect</button></li>
<li class="entity-result"><a href="https://www.linkedin.com/in/joao/"><span aria-hidden="true">João Souza</span></a><button>Pending</button></li>
</ul><button>Conectar</button>
<button aria-label="Next" disabled>Next</button></main></body></html>`

func TestProbe_SavedPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.html")
	require.NoError(t, os.WriteFile(path, []byte(savedResults), 0644))

	doc, err := snapshot.Load(path)
	require.NoError(t, err)

	report, err := probe(context.Background(), doc, config.DefaultSelectors(), config.DefaultPatterns())
	require.NoError(t, err)

	assert.Contains(t, report, "Candidates: 2")
	assert.Contains(t, report, "Maria Silva  https://www.linkedin.com/in/maria")
	assert.Contains(t, report, "<no enclosing list item, skipped>")
	assert.NotContains(t, report, "João")
	assert.Contains(t, report, "Weekly limit banner: No")
	assert.Contains(t, report, "Next page: missing or disabled")
}

func TestDescribeConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
connect:
  MY_NAME: Ana Souza
  MY_POSITION: Backend Engineer
  POS_SEARCH: Go
  MESSAGE_TEMPLATE:
    TEXT: "Hi {firstName}, I'm {MY_NAME}."
search:
  keywords: ["golang", "recruiter"]
`))
	require.NoError(t, err)
	runCfg, err := cfg.Run()
	require.NoError(t, err)

	out := describeConfig(cfg, runCfg, "Maria Silva")

	assert.Contains(t, out, "Sender: Ana Souza, Backend Engineer (Go)")
	assert.Contains(t, out, "keywords=golang+recruiter")
	assert.Contains(t, out, "Limits: default 100, premium 200")
	assert.Contains(t, out, "Hi Maria, I'm Ana Souza.")
	assert.NotContains(t, out, "⚠️")
}

func TestDescribeConfig_LongNote(t *testing.T) {
	runCfg := config.RunConfig{
		SenderName:      "Ana",
		MessageTemplate: strings.Repeat("x", 301),
		IncludeNote:     true,
	}

	out := describeConfig(&config.Config{}, runCfg, "")
	assert.Contains(t, out, "Note (301 characters)")
	assert.Contains(t, out, "longer than 300 characters")
	assert.Contains(t, out, "Search: <")
}

func TestPrintHistory(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer store.Close()

	id, err := store.BeginRun(ctx, false, true, 3)
	require.NoError(t, err)
	require.NoError(t, store.RecordOutcome(ctx, storage.Invitation{RunID: id, Name: "Maria Silva", Outcome: "canceled"}))
	require.NoError(t, store.EndRun(ctx, id, "completed", 0, 1))

	var buf bytes.Buffer
	require.NoError(t, printHistory(ctx, &buf, store, 10))

	out := buf.String()
	assert.Contains(t, out, "total_runs")
	assert.Contains(t, out, id[:8])
	assert.Contains(t, out, "canceled=1  completed")
	assert.Contains(t, out, "Maria Silva")
}
