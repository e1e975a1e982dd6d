package debrid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/brahimtod123-lgtm/Souhail-torrent/internal/mediaresolve"
	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
)

// MinCredentialLength is the shortest API key any supported service issues.
const MinCredentialLength = 20

// ResolverConfig bounds every remote interaction of a resolution.
type ResolverConfig struct {
	CallTimeout    time.Duration // per remote call
	PollInterval   time.Duration // fixed wait between status polls
	PollAttempts   uint          // total status polls, first one included
	CleanupTimeout time.Duration // delete call, detached from the request deadline
}

func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		CallTimeout:    8 * time.Second,
		PollInterval:   2500 * time.Millisecond,
		PollAttempts:   3,
		CleanupTimeout: 5 * time.Second,
	}
}

func (c ResolverConfig) withDefaults() ResolverConfig {
	def := DefaultResolverConfig()
	if c.CallTimeout <= 0 {
		c.CallTimeout = def.CallTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.PollAttempts == 0 {
		c.PollAttempts = def.PollAttempts
	}
	if c.CleanupTimeout <= 0 {
		c.CleanupTimeout = def.CleanupTimeout
	}
	return c
}

// ValidateCredential rejects keys that cannot possibly be valid, so no
// request is ever sent with them.
func ValidateCredential(apiKey string) error {
	trimmed := strings.TrimSpace(apiKey)
	if trimmed == "" {
		return fmt.Errorf("%w: empty", ErrMissingCredential)
	}
	if len(trimmed) < MinCredentialLength {
		return fmt.Errorf("%w: shorter than %d characters", ErrMissingCredential, MinCredentialLength)
	}
	if strings.IndexFunc(trimmed, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: contains whitespace", ErrMissingCredential)
	}
	return nil
}

// Resolver runs the submit, select, poll, unrestrict and delete cycle for
// one candidate at a time. It holds no per-resolution state and is safe for
// concurrent use.
type Resolver struct {
	provider Provider
	credErr  error
	cfg      ResolverConfig
	log      zerolog.Logger
}

// NewResolver binds a provider to the credential it was built with. A nil
// provider or an invalid credential makes every resolution fail with
// MissingCredential before any network call.
func NewResolver(provider Provider, apiKey string, cfg ResolverConfig, logger zerolog.Logger) *Resolver {
	credErr := ValidateCredential(apiKey)
	if provider == nil && credErr == nil {
		credErr = fmt.Errorf("%w: no provider configured", ErrMissingCredential)
	}
	name := "none"
	if provider != nil {
		name = provider.Name()
	}
	return &Resolver{
		provider: provider,
		credErr:  credErr,
		cfg:      cfg.withDefaults(),
		log:      logger.With().Str("component", "resolver").Str("provider", name).Logger(),
	}
}

// Enabled reports whether resolutions can reach the remote service.
func (r *Resolver) Enabled() bool {
	return r != nil && r.credErr == nil
}

// ProviderName returns the configured provider, or "" when disabled.
func (r *Resolver) ProviderName() string {
	if r == nil || r.provider == nil {
		return ""
	}
	return r.provider.Name()
}

// Resolve determines whether the candidate is playable right now. It never
// returns an error; every outcome is folded into the result state.
func (r *Resolver) Resolve(ctx context.Context, candidate models.Candidate) models.ResolutionResult {
	if !r.Enabled() {
		return models.Failed(models.ErrorKindMissingCredential)
	}
	if candidate.Synthetic {
		return models.TorrentOnly(models.ErrorKindNotCached)
	}

	magnet := strings.TrimSpace(candidate.Magnet)
	if magnet == "" {
		magnet = BuildMagnet(candidate.InfoHash, candidate.Title, nil)
	}
	if magnet == "" {
		return models.Failed(models.ErrorKindMalformedResponse)
	}

	log := r.log.With().Str("infoHash", candidate.InfoHash).Logger()
	start := time.Now()

	var added *AddMagnetResult
	err := r.withTimeout(ctx, func(callCtx context.Context) error {
		var addErr error
		added, addErr = r.provider.AddMagnet(callCtx, magnet)
		return addErr
	})
	if err != nil {
		log.Debug().Err(err).Msg("submit failed")
		return models.Failed(KindOf(err))
	}
	defer r.cleanup(ctx, added.ID, log)

	if err := r.withTimeout(ctx, func(callCtx context.Context) error {
		return r.provider.SelectFiles(callCtx, added.ID, selectAllFiles)
	}); err != nil {
		log.Debug().Err(err).Str("torrentId", added.ID).Msg("select files failed, continuing")
	}

	info, polls, err := r.poll(ctx, added.ID)
	if err != nil {
		log.Debug().Err(err).Uint("polls", polls).Msg("not ready within poll ceiling")
		return models.TorrentOnly(KindOf(err))
	}

	link := pickLink(info, candidate, log)
	if link == "" {
		return models.TorrentOnly(models.ErrorKindNotCached)
	}

	var unrestricted *UnrestrictResult
	err = r.withTimeout(ctx, func(callCtx context.Context) error {
		var unrestrictErr error
		unrestricted, unrestrictErr = r.provider.UnrestrictLink(callCtx, link)
		return unrestrictErr
	})
	if err != nil {
		log.Debug().Err(err).Msg("unrestrict failed")
		return models.TorrentOnly(KindOf(err))
	}

	state := models.StateCachedInstant
	if polls > 1 {
		state = models.StateCachedAfterWait
	}
	log.Debug().Str("state", string(state)).Dur("elapsed", time.Since(start)).Msg("resolved")

	size := uint64(0)
	if unrestricted.Filesize > 0 {
		size = uint64(unrestricted.Filesize)
	}
	return models.ResolutionResult{
		State:     state,
		StreamURL: unrestricted.DownloadURL,
		Filename:  unrestricted.Filename,
		SizeBytes: size,
	}
}

// pickLink maps the chosen file onto its download link. Links line up with
// the selected files; when they do not, the first link is used. An empty
// return means the torrent does not hold the requested episode.
func pickLink(info *TorrentInfo, candidate models.Candidate, log zerolog.Logger) string {
	selected := make([]mediaresolve.File, 0, len(info.Files))
	for _, f := range info.Files {
		if f.Selected == 1 {
			selected = append(selected, mediaresolve.File{ID: f.ID, Label: f.Path, Bytes: f.Bytes})
		}
	}
	if len(selected) != len(info.Links) {
		return info.Links[0]
	}

	idx, reason := mediaresolve.SelectFile(selected, mediaresolve.SelectionHints{
		ReleaseTitle:  candidate.Title,
		FileIndex:     candidate.FileIndex,
		TargetSeason:  candidate.Season,
		TargetEpisode: candidate.Episode,
	})
	switch {
	case idx >= 0:
		log.Debug().Str("file", selected[idx].Label).Str("reason", reason).Msg("selected file")
		return info.Links[idx]
	case candidate.Season > 0 && candidate.Episode > 0:
		log.Debug().Str("reason", reason).Msg("episode not in torrent")
		return ""
	}
	return info.Links[0]
}

// poll re-reads the torrent status at a fixed interval until it is ready,
// dead, or the attempt ceiling is hit.
func (r *Resolver) poll(ctx context.Context, torrentID string) (*TorrentInfo, uint, error) {
	var polls uint
	info, err := retry.DoWithData(
		func() (*TorrentInfo, error) {
			polls++
			var current *TorrentInfo
			err := r.withTimeout(ctx, func(callCtx context.Context) error {
				var infoErr error
				current, infoErr = r.provider.GetTorrentInfo(callCtx, torrentID)
				return infoErr
			})
			switch {
			case err != nil:
				return nil, err
			case current.Dead():
				return nil, retry.Unrecoverable(fmt.Errorf("%w: remote status %s", ErrNotCached, current.Status))
			case !current.Ready():
				return nil, fmt.Errorf("%w: status %s", ErrNotCached, current.Status)
			}
			return current, nil
		},
		retry.Context(ctx),
		retry.Attempts(r.cfg.PollAttempts),
		retry.Delay(r.cfg.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// A rejected credential will not fix itself between polls.
			return !errors.Is(err, ErrMissingCredential)
		}),
	)
	if err != nil && ctx.Err() != nil && !errors.Is(err, ErrNotCached) {
		err = fmt.Errorf("%w: %w", ErrNotCached, ctx.Err())
	}
	return info, polls, err
}

func (r *Resolver) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	return fn(callCtx)
}

// cleanup deletes the remote registration. It runs even after the request
// deadline has passed, bounded by its own timeout, and never fails the
// resolution.
func (r *Resolver) cleanup(ctx context.Context, torrentID string, log zerolog.Logger) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.CleanupTimeout)
	defer cancel()
	if err := r.provider.DeleteTorrent(cleanupCtx, torrentID); err != nil {
		log.Warn().Err(err).Str("torrentId", torrentID).Msg("failed to delete remote torrent")
	}
}
