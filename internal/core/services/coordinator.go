package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driven"
	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driving"
	"github.com/zukiwong/mirrornote-prompt/internal/logger"
)

// Ensure PromptCoordinator implements the interface.
var _ driving.PromptService = (*PromptCoordinator)(nil)

// DefaultStartDelay is how long after initialization the periodic update
// loop kicks off. Startup rendering never waits on the network.
const DefaultStartDelay = 3 * time.Second

// ConfigPersister is the slice of ConfigStore the coordinator drives.
type ConfigPersister interface {
	Save(ctx context.Context, doc *domain.ConfigurationDocument) error
	Load(ctx context.Context) (*domain.ConfigurationDocument, error)
	ClearAll(ctx context.Context) error
}

// ConfigFetcher is the slice of RemoteSync the coordinator drives.
type ConfigFetcher interface {
	FetchLatest(ctx context.Context) (*domain.ConfigurationDocument, error)
	Updates() <-chan *domain.ConfigurationDocument
	CurrentInterval() time.Duration
}

// ActiveSlotWatcher is implemented by stores that can report external
// changes to the active configuration slot.
type ActiveSlotWatcher interface {
	WatchActive(ctx context.Context) (<-chan struct{}, error)
}

// PromptRenderer is the slice of TemplateEngine the coordinator drives.
type PromptRenderer interface {
	LoadConfiguration(doc *domain.ConfigurationDocument) error
	BuildPrompt(templateKey string, entry *domain.EmotionEntry, tone domain.Tone, lang domain.Language, user *domain.UserContext) (string, error)
	ActiveVersion() string
	HasTemplate(key string) bool
	Snapshot() *domain.ConfigurationDocument
}

// PromptCoordinator orchestrates the subsystem: it owns initialization and
// the active configuration's lifecycle, exposes BuildPrompt, and wires
// RemoteSync's accepted updates into persistence and the template engine.
// Its contract to callers is graceful degradation: once Initialize has
// run, some configuration is always active, worst case the built-in
// default.
type PromptCoordinator struct {
	store    ConfigPersister
	remote   ConfigFetcher
	engine   PromptRenderer
	profiles driven.ProfileProvider

	scheduler  *UpdateScheduler
	startDelay time.Duration

	initMu      sync.Mutex
	initialized bool
	bgStarted   bool
	cancel      context.CancelFunc

	stateMu     sync.Mutex
	updateState domain.UpdateState

	wg sync.WaitGroup
}

// NewPromptCoordinator wires the coordinator. profiles and reach may be
// nil: personalization is skipped and the update loop runs on the timer
// alone.
func NewPromptCoordinator(
	store ConfigPersister,
	remote ConfigFetcher,
	engine PromptRenderer,
	profiles driven.ProfileProvider,
	reach driven.Reachability,
) *PromptCoordinator {
	c := &PromptCoordinator{
		store:       store,
		remote:      remote,
		engine:      engine,
		profiles:    profiles,
		startDelay:  DefaultStartDelay,
		updateState: domain.UpdateStateIdle,
	}
	c.scheduler = NewUpdateScheduler(c, remote, reach)
	return c
}

// Scheduler returns the update scheduler, e.g. to forward foreground
// resume signals.
func (c *PromptCoordinator) Scheduler() *UpdateScheduler {
	return c.scheduler
}

// Initialize loads the stored configuration into the template engine,
// falling back to the built-in default, and starts the background update
// machinery. Idempotent after the first success; concurrent callers block
// until the first initialization completes. Even when an error is
// returned, the built-in default has been loaded and BuildPrompt works.
func (c *PromptCoordinator) Initialize(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.initialized {
		return nil
	}

	var initErr error

	doc, err := c.store.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrLoadFailed) {
			// Stored documents are undecodable, most likely after a schema
			// change. Nuke and refetch.
			logger.Warn("stored configuration unreadable, clearing storage: %v", err)
			if clearErr := c.store.ClearAll(ctx); clearErr != nil {
				logger.Warn("clearing configuration storage failed: %v", clearErr)
			}
			doc, err = c.store.Load(ctx)
		}
		if err != nil {
			initErr = err
			doc = nil
		}
	}

	if doc == nil {
		def := domain.DefaultDocument()
		if saveErr := c.store.Save(ctx, def); saveErr != nil {
			logger.Warn("persisting default configuration failed: %v", saveErr)
		}
		doc = def
	}

	if loadErr := c.engine.LoadConfiguration(doc); loadErr != nil {
		initErr = errors.Join(initErr, loadErr)
		if fallbackErr := c.engine.LoadConfiguration(domain.DefaultDocument()); fallbackErr != nil {
			initErr = errors.Join(initErr, fallbackErr)
		}
	}

	c.startBackground()

	if initErr != nil {
		return fmt.Errorf("%w: %w", domain.ErrInitializationFailed, initErr)
	}
	c.initialized = true
	return nil
}

// startBackground launches the update subscription and the deferred
// scheduler kick-off exactly once. Caller holds initMu.
func (c *PromptCoordinator) startBackground() {
	if c.bgStarted {
		return
	}
	c.bgStarted = true

	bgCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go c.watchUpdates(bgCtx)

	if watcher, ok := c.store.(ActiveSlotWatcher); ok {
		c.wg.Add(1)
		go c.watchStore(bgCtx, watcher)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-bgCtx.Done():
			return
		case <-time.After(c.startDelay):
		}
		if err := c.scheduler.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("update scheduler stopped: %v", err)
		}
	}()
}

// watchUpdates adopts documents published by background fetches.
func (c *PromptCoordinator) watchUpdates(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case doc, ok := <-c.remote.Updates():
			if !ok {
				return
			}
			if doc == nil || doc.Version == c.engine.ActiveVersion() {
				continue
			}
			if err := c.applyUpdate(ctx, doc); err != nil {
				logger.Warn("adopting pushed configuration failed: %v", err)
			}
		}
	}
}

// watchStore re-reads the active configuration when another process
// rewrites it, e.g. a second CLI invocation against the same data dir.
func (c *PromptCoordinator) watchStore(ctx context.Context, watcher ActiveSlotWatcher) {
	defer c.wg.Done()

	changes, err := watcher.WatchActive(ctx)
	if err != nil {
		logger.Debug("configuration storage watch unavailable: %v", err)
		return
	}
	if changes == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			doc, err := c.store.Load(ctx)
			if err != nil || doc == nil {
				logger.Debug("reloading changed configuration skipped: %v", err)
				continue
			}
			if err := c.engine.LoadConfiguration(doc); err != nil {
				logger.Warn("activating externally changed configuration failed: %v", err)
				continue
			}
			logger.Info("configuration reloaded after external change, version %s", doc.Version)
		}
	}
}

// BuildPrompt renders the prompt for an entry. Personalization is
// best-effort: a failing profile lookup is logged and skipped. The
// template key is widened to "<language>_<tone>_<style>" when the active
// document carries that variant.
func (c *PromptCoordinator) BuildPrompt(ctx context.Context, entry *domain.EmotionEntry, tone domain.Tone, lang domain.Language, opts driving.BuildOptions) (string, error) {
	if err := c.Initialize(ctx); err != nil {
		logger.Warn("initialization incomplete: %v", err)
	}
	if entry == nil {
		return "", fmt.Errorf("%w: nil entry", domain.ErrPromptBuildFailed)
	}
	if c.engine.ActiveVersion() == "" {
		return "", domain.ErrConfigurationMissing
	}

	var user *domain.UserContext
	if opts.IncludePersonalization && c.profiles != nil {
		profile, err := c.profiles.Profile(ctx)
		if err != nil {
			logger.Debug("profile lookup failed: %v", err)
		} else {
			user = profile
		}
	}

	key := domain.TemplateKey(lang, tone)
	if user != nil && user.CommunicationStyle != "" {
		if widened := domain.WidenedTemplateKey(lang, tone, user.CommunicationStyle); c.engine.HasTemplate(widened) {
			key = widened
		}
	}

	prompt, err := c.engine.BuildPrompt(key, entry, tone, lang, user)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrPromptBuildFailed, err)
	}
	return prompt, nil
}

// UpdateFromRemote explicitly fetches and activates the latest remote
// configuration. The update-available check is a string comparison of the
// version tags only; any differing version string counts as new, even one
// that would order as older.
func (c *PromptCoordinator) UpdateFromRemote(ctx context.Context) (domain.UpdateState, error) {
	if err := c.Initialize(ctx); err != nil {
		logger.Warn("initialization incomplete: %v", err)
	}

	c.setUpdateState(domain.UpdateStateUpdating)

	doc, err := c.remote.FetchLatest(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotInRollout) {
			logger.Info("no update available: %v", err)
			c.setUpdateState(domain.UpdateStateSuccess)
			return domain.UpdateStateSuccess, nil
		}
		c.setUpdateState(domain.UpdateStateFailed)
		return domain.UpdateStateFailed, err
	}

	if doc.Version == c.engine.ActiveVersion() {
		logger.Debug("remote version %s already active", doc.Version)
		c.setUpdateState(domain.UpdateStateSuccess)
		return domain.UpdateStateSuccess, nil
	}

	if err := c.applyUpdate(ctx, doc); err != nil {
		c.setUpdateState(domain.UpdateStateFailed)
		return domain.UpdateStateFailed, err
	}
	c.setUpdateState(domain.UpdateStateSuccess)
	return domain.UpdateStateSuccess, nil
}

// applyUpdate persists the accepted document and activates it in the
// template engine.
func (c *PromptCoordinator) applyUpdate(ctx context.Context, doc *domain.ConfigurationDocument) error {
	if err := c.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("persist configuration %s: %w", doc.Version, err)
	}
	if err := c.engine.LoadConfiguration(doc); err != nil {
		return fmt.Errorf("activate configuration %s: %w", doc.Version, err)
	}
	logger.Info("configuration updated to %s", doc.Version)
	return nil
}

// ConfigInfo returns a snapshot describing the active configuration.
func (c *PromptCoordinator) ConfigInfo() domain.ConfigInfo {
	info := domain.ConfigInfo{Status: c.getUpdateState()}
	if doc := c.engine.Snapshot(); doc != nil {
		info.Version = doc.Version
		info.LastUpdate = doc.LastModified
		info.Languages = doc.SupportedLanguages
		info.Tones = doc.SupportedTones
		info.TemplateCount = len(doc.Templates)
	}
	return info
}

// Close stops the update loop and waits for background work to finish.
func (c *PromptCoordinator) Close() error {
	c.initMu.Lock()
	cancel := c.cancel
	c.initMu.Unlock()

	if cancel != nil {
		cancel()
	}
	_ = c.scheduler.Stop()
	c.wg.Wait()
	return nil
}

func (c *PromptCoordinator) setUpdateState(s domain.UpdateState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.updateState = s
}

func (c *PromptCoordinator) getUpdateState() domain.UpdateState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.updateState
}
