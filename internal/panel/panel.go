// Package panel injects the control panel overlay into the results page and
// bridges its controls to the run controller through rod bindings.
package panel

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/runner"
	"github.com/yourusername/linkedin-connect/internal/state"
	"github.com/yourusername/linkedin-connect/internal/status"
)

//go:embed panel.js
var panelJS string

// Binding names exposed on window
const (
	BindStart   = "__lccStart"
	BindStop    = "__lccStop"
	BindLimit   = "__lccLimit"
	BindPremium = "__lccPremium"
)

// queueSize bounds the pending overlay updates; older updates are dropped
// when the page stops responding
const queueSize = 64

// Controller is the part of runner.Controller the panel drives
type Controller interface {
	Start(in runner.Inputs) bool
	Stop() bool
	SetLimit(limit int)
	SetPremium(premium bool)
	LimitFor(premium bool) int
	Snapshot() state.Snapshot
}

// Options are the initial panel values
type Options struct {
	Version            string
	Premium            bool
	TestMode           bool
	Limit              int
	PremiumLimit       int
	MaxTestConnections int
}

// evaluator is satisfied by *rod.Page
type evaluator interface {
	Eval(js string, args ...interface{}) (*proto.RuntimeRemoteObject, error)
}

// Panel is the mounted overlay. It implements status.Reporter.
type Panel struct {
	page evaluator
	ctrl Controller
	opts Options

	updates chan update
	stops   []func() error
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var _ status.Reporter = (*Panel)(nil)

type update struct {
	js   string
	args []interface{}
}

// Mount exposes the bindings, injects the overlay into the current document
// and into every document the page loads later
func Mount(page *rod.Page, ctrl Controller, opts Options) (*Panel, error) {
	p := newPanel(page, ctrl, opts)

	bindings := map[string]func(gson.JSON) (interface{}, error){
		BindStart:   p.onStart,
		BindStop:    p.onStop,
		BindLimit:   p.onLimit,
		BindPremium: p.onPremium,
	}
	for name, fn := range bindings {
		stop, err := page.Expose(name, fn)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to expose %s: %w", name, err)
		}
		p.stops = append(p.stops, stop)
	}

	args, err := json.Marshal(p.jsOptions())
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to encode panel options: %w", err)
	}
	if _, err := page.EvalOnNewDocument(fmt.Sprintf("(%s)(%s)", panelJS, args)); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to register panel script: %w", err)
	}
	if _, err := page.Eval(panelJS, p.jsOptions()); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to inject panel: %w", err)
	}

	logger.Info("Control panel mounted", "version", opts.Version)
	return p, nil
}

func newPanel(page evaluator, ctrl Controller, opts Options) *Panel {
	if opts.Limit < 1 {
		opts.Limit = ctrl.LimitFor(opts.Premium)
	}
	p := &Panel{page: page, ctrl: ctrl, opts: opts, updates: make(chan update, queueSize)}
	p.wg.Add(1)
	go p.drain()
	return p
}

func (p *Panel) jsOptions() map[string]interface{} {
	return map[string]interface{}{
		"version":            p.opts.Version,
		"premium":            p.opts.Premium,
		"testMode":           p.opts.TestMode,
		"limit":              p.opts.Limit,
		"maxLimit":           config.MaxPanelLimit,
		"premiumLimit":       p.opts.PremiumLimit,
		"maxTestConnections": p.opts.MaxTestConnections,
		"bindings": map[string]string{
			"start":   BindStart,
			"stop":    BindStop,
			"limit":   BindLimit,
			"premium": BindPremium,
		},
	}
}

// Close removes the bindings and stops the update worker
func (p *Panel) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.updates)
	p.mu.Unlock()

	for _, stop := range p.stops {
		if err := stop(); err != nil {
			logger.Debug("Failed to remove panel binding", "error", err)
		}
	}
	p.wg.Wait()
}

// drain applies overlay updates in order off the caller's goroutine, so the
// loop never blocks on the page and binding callbacks never wait on
// themselves
func (p *Panel) drain() {
	defer p.wg.Done()
	for u := range p.updates {
		if _, err := p.page.Eval(u.js, u.args...); err != nil {
			logger.Debug("Panel update failed", "error", err)
		}
	}
}

func (p *Panel) push(js string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.updates <- update{js: js, args: args}:
	default:
		logger.Debug("Panel update queue full, dropping update")
	}
}

func (p *Panel) Status(msg string) {
	logger.Info(msg)
	p.push(`(m) => window.__lccPanel && window.__lccPanel.status(m)`, msg)
}

func (p *Panel) PanelStatus(msg string) {
	p.push(`(m) => window.__lccPanel && window.__lccPanel.headline(m)`, msg)
}

func (p *Panel) Counts(c status.Counts) {
	p.push(`(s, c, r) => window.__lccPanel && window.__lccPanel.counts(s, c, r)`, c.Sent, c.Canceled, c.Remaining)
}

func (p *Panel) onStart(req gson.JSON) (interface{}, error) {
	in := runner.Inputs{
		Premium:  req.Get("premium").Bool(),
		TestMode: req.Get("testMode").Bool(),
		Limit:    p.clamp(req.Get("limit").Int()),
	}
	logger.Debug("Start requested from panel", "premium", in.Premium, "test_mode", in.TestMode, "limit", in.Limit)
	if !p.ctrl.Start(in) {
		p.Status("Already running")
		return false, nil
	}
	return true, nil
}

func (p *Panel) onStop(gson.JSON) (interface{}, error) {
	return p.ctrl.Stop(), nil
}

func (p *Panel) onLimit(req gson.JSON) (interface{}, error) {
	limit := p.clamp(req.Int())
	p.ctrl.SetLimit(limit)
	snap := p.ctrl.Snapshot()
	p.Status(fmt.Sprintf("Connection limit set to %d, remaining: %d", snap.Limit, snap.Remaining))
	return limit, nil
}

func (p *Panel) onPremium(req gson.JSON) (interface{}, error) {
	premium := req.Bool()
	limit := p.ctrl.LimitFor(premium)
	p.ctrl.SetPremium(premium)
	p.ctrl.SetLimit(limit)

	answer := "No"
	if premium {
		answer = "Yes"
	}
	p.Status(fmt.Sprintf("Premium user set to: %s, limit: %d", answer, limit))
	return limit, nil
}

func (p *Panel) clamp(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > config.MaxPanelLimit {
		return config.MaxPanelLimit
	}
	return limit
}
