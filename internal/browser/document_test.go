package browser

import (
	"context"
	"testing"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/locate"
	"github.com/yourusername/linkedin-connect/internal/stealth/stealthtest"
)

const resultsPage = `<html><body>
<ul>
  <li class="entity-result">
    <a href="https://www.linkedin.com/in/maria/?miniProfileUrn=x"><span aria-hidden="true">Maria Silva</span></a>
    <button class="connect" onclick="document.getElementById('modal').hidden = false">Connect</button>
  </li>
  <li class="entity-result"><span aria-hidden="true">Old Friend</span><button>Pending</button></li>
  <li class="entity-result" style="display:none"><span aria-hidden="true">Hidden</span><button>Connect</button></li>
</ul>
<div id="modal" hidden>
  <textarea id="custom-message" oninput="document.getElementById('send').disabled = this.value.length === 0"></textarea>
  <button id="send" aria-label="Send invitation" disabled>Send</button>
</div>
<div class="banner">You've reached the weekly invitation limit</div>
<button aria-label="Next" class="artdeco-button--disabled">Next</button>
</body></html>`

// newPage needs a local Chrome; it is skipped in short mode or when none is installed
func newPage(t *testing.T) *rod.Page {
	t.Helper()
	if testing.Short() {
		t.Skip("browser test")
	}
	path, ok := launcher.LookPath()
	if !ok {
		t.Skip("no local Chrome")
	}

	l := launcher.New().Bin(path).Headless(true).Leakless(false)
	u, err := l.Launch()
	if err != nil {
		t.Skipf("failed to launch Chrome: %v", err)
	}
	t.Cleanup(l.Cleanup)

	b := rod.New().ControlURL(u)
	require.NoError(t, b.Connect())
	t.Cleanup(func() { b.Close() })

	page, err := b.Page(proto.TargetCreateTarget{})
	require.NoError(t, err)
	require.NoError(t, page.SetDocumentContent(resultsPage))
	return page
}

func TestDocument_LiveResultsPage(t *testing.T) {
	doc := NewDocument(newPage(t), Options{})
	loc := locate.New(doc, config.DefaultSelectors(), config.DefaultPatterns(), &stealthtest.Sleeper{})

	cands, err := loc.Candidates()
	require.NoError(t, err)
	require.Len(t, cands, 1)

	profile, ok, err := loc.Describe(cands[0].Button)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Maria Silva", profile.Name)
	assert.Equal(t, "https://www.linkedin.com/in/maria", profile.ProfileURL)

	require.NoError(t, cands[0].Button.Click())
	field, ok, err := loc.FindNoteField()
	require.NoError(t, err)
	require.True(t, ok)
	visible, err := field.Visible()
	require.NoError(t, err)
	assert.True(t, visible)

	_, err = loc.FindEnabledControl(context.Background(), `button[aria-label="Send invitation"]`, 1)
	assert.ErrorIs(t, err, locate.ErrNotFound)

	require.NoError(t, field.SetValue("Hi Maria"))
	send, err := loc.FindSend(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, send)

	_, ok, err = loc.FindRateLimitBanner()
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = loc.FindEnabledControl(context.Background(), `button[aria-label="Next"]`, 1)
	assert.ErrorIs(t, err, locate.ErrNotFound)

	require.NoError(t, doc.ScrollToBottom())
}
