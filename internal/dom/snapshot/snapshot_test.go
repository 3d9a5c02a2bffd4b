package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<ul>
  <li class="result"><span aria-hidden="true">Maria Silva</span><button id="c1">Connect</button></li>
  <li class="result" hidden><span aria-hidden="true">Hidden Person</span><button id="c2">Connect</button></li>
  <li class="result"><span aria-hidden="true">Paulo</span><button id="c3" style="display: none">Connect</button></li>
</ul>
<div id="modal"></div>
<textarea id="custom-message"></textarea>
<button id="next" aria-label="Next" disabled>Next</button>
</body></html>`

func TestDocument_QueryAndText(t *testing.T) {
	d, err := ParseString(page)
	require.NoError(t, err)

	buttons, err := d.QueryAll("button")
	require.NoError(t, err)
	assert.Len(t, buttons, 4)

	el, ok, err := d.Query("#c1")
	require.NoError(t, err)
	require.True(t, ok)

	item, ok, err := el.Closest("li")
	require.NoError(t, err)
	require.True(t, ok)
	name, ok, err := item.Find(`span[aria-hidden="true"]`)
	require.NoError(t, err)
	require.True(t, ok)
	text, _ := name.Text()
	assert.Equal(t, "Maria Silva", text)

	_, ok, err = d.Query("#missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestElement_Visibility(t *testing.T) {
	d, err := ParseString(page)
	require.NoError(t, err)

	for id, want := range map[string]bool{"#c1": true, "#c2": false, "#c3": false} {
		el, ok, _ := d.Query(id)
		require.True(t, ok, id)
		visible, err := el.Visible()
		require.NoError(t, err)
		assert.Equal(t, want, visible, id)
	}

	next, _, _ := d.Query("#next")
	disabled, _ := next.Disabled()
	assert.True(t, disabled)
}

func TestElement_ClickDispatchesHandlers(t *testing.T) {
	d, err := ParseString(page)
	require.NoError(t, err)

	d.On(EventClick, "#c1", func(d *Document, _ *Element) error {
		d.Append("#modal", `<button aria-label="Send invitation">Send</button>`)
		return nil
	})

	el, _, _ := d.Query("#c1")
	require.NoError(t, el.Click())

	_, ok, _ := d.Query(`button[aria-label="Send invitation"]`)
	assert.True(t, ok)
	assert.Equal(t, 1, d.Count(EventClick))
	assert.Equal(t, "button#c1", d.Events()[0].Target)
}

func TestElement_SetValueAndDetach(t *testing.T) {
	d, err := ParseString(page)
	require.NoError(t, err)

	var seen string
	d.On(EventInput, "textarea", func(_ *Document, el *Element) error {
		seen, _, _ = el.Attr("value")
		return nil
	})

	area, _, _ := d.Query("textarea#custom-message")
	require.NoError(t, area.SetValue("Hi Maria"))
	assert.Equal(t, "Hi Maria", seen)
	assert.Equal(t, "Hi Maria", d.Value("textarea#custom-message"))
	assert.Equal(t, "Hi Maria", d.Root().Find("textarea").Text())

	attached, _ := area.Attached()
	assert.True(t, attached)
	d.Remove("textarea")
	attached, _ = area.Attached()
	assert.False(t, attached)
}

func TestDocument_FindByTextAndScroll(t *testing.T) {
	d, err := ParseString(`<body><div class="banner">You've reached the Weekly Invitation Limit</div><button>Got it</button></body>`)
	require.NoError(t, err)

	el, ok, err := d.FindByText("div", []string{"weekly invitation limit"})
	require.NoError(t, err)
	require.True(t, ok)
	class, _, _ := el.Attr("class")
	assert.Equal(t, "banner", class)

	_, ok, _ = d.FindByText("div", []string{"limite semanal"})
	assert.False(t, ok)

	scrolled := 0
	d.On(EventScroll, "", func(*Document, *Element) error {
		scrolled++
		return nil
	})
	require.NoError(t, d.ScrollToBottom())
	assert.Equal(t, 1, scrolled)
	assert.Equal(t, 1, d.Count(EventScroll))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	_, ok, _ := d.Query("#next")
	assert.True(t, ok)

	_, err = Load(filepath.Join(t.TempDir(), "missing.html"))
	assert.Error(t, err)
}
