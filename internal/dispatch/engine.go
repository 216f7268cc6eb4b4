// Package dispatch turns a decision record into a meme link and applies the
// optional post-processing steps.
package dispatch

import (
	"context"
	"fmt"

	"meme-workers/internal/common/errors"
	"meme-workers/internal/common/logger"
	"meme-workers/internal/common/metrics"
	"meme-workers/internal/common/validation"
	"meme-workers/internal/models"
)

type ImageSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

type MemeRenderer interface {
	FromTemplate(ctx context.Context, blankURL string, lines []string) (string, error)
	FromImage(ctx context.Context, imageURL, text string) (string, error)
}

type StickerConverter interface {
	Convert(ctx context.Context, memeLink string) (string, error)
}

type Persister interface {
	Save(ctx context.Context, link string) (string, error)
}

type URLOpener interface {
	Open(ctx context.Context, url string) error
}

type TemplateLookup interface {
	Lookup(key string) (models.TemplateRecord, error)
}

// Deps are the engine's collaborators. Sticker, Persister and Opener may be
// nil when the corresponding feature is unavailable.
type Deps struct {
	Catalog   TemplateLookup
	Search    ImageSearcher
	Renderer  MemeRenderer
	Sticker   StickerConverter
	Persister Persister
	Opener    URLOpener
}

type Engine struct {
	catalog   TemplateLookup
	search    ImageSearcher
	renderer  MemeRenderer
	sticker   StickerConverter
	persister Persister
	opener    URLOpener
	logger    logger.Logger
}

func NewEngine(deps Deps, log logger.Logger) *Engine {
	return &Engine{
		catalog:   deps.Catalog,
		search:    deps.Search,
		renderer:  deps.Renderer,
		sticker:   deps.Sticker,
		persister: deps.Persister,
		opener:    deps.Opener,
		logger:    log,
	}
}

// Dispatch runs one request to completion. Upstream failures fail fast with
// UPSTREAM_ERROR naming the step; a failed save is reported on the artifact.
func (e *Engine) Dispatch(ctx context.Context, req models.DispatchRequest) (*models.GeneratedArtifact, error) {
	plan, err := e.Plan(req)
	if err != nil {
		return nil, err
	}
	metrics.DispatchBranches.WithLabelValues(string(plan.Branch())).Inc()

	log := e.logger.With(map[string]interface{}{"branch": string(plan.Branch())})

	var memeLink string
	switch p := plan.(type) {
	case TemplatePlan:
		memeLink, err = e.runTemplate(ctx, p, log)
	case SearchPlan:
		memeLink, err = e.runSearch(ctx, p)
	default:
		err = fmt.Errorf("unknown plan %T", plan)
	}
	if err != nil {
		return nil, err
	}

	artifact := &models.GeneratedArtifact{Branch: plan.Branch(), MemeLink: memeLink}
	log.Info("meme link ready", map[string]interface{}{"memeLink": memeLink})

	if req.SaveAsImage {
		e.persist(ctx, artifact, log)
	}

	if req.WantSticker {
		stickerLink, err := e.stickerize(ctx, memeLink)
		if err != nil {
			return nil, err
		}
		artifact.StickerLink = stickerLink
		e.open(ctx, stickerLink, log)
	}

	return artifact, nil
}

func (e *Engine) runTemplate(ctx context.Context, p TemplatePlan, log logger.Logger) (string, error) {
	if p.Overrode {
		log.Warn("decision names a template but search generation was requested; using template", map[string]interface{}{
			"templateKey": p.Key,
		})
	}

	if p.DirectLink != "" {
		return p.DirectLink, nil
	}

	if p.Mismatch {
		metrics.LineCountMismatches.Inc()
		log.Warn("text fitted to template line count", map[string]interface{}{
			"templateKey": p.Key,
			"error":       errors.NewLineCountMismatchError(p.Key, p.Template.Lines, p.Supplied).Details,
		})
	}

	link, err := e.renderer.FromTemplate(ctx, p.Template.Blank, p.Lines)
	if err != nil {
		return "", e.upstream(errors.StepRenderTemplate, err)
	}
	if !validation.IsValidURL(link) {
		return "", e.upstream(errors.StepRenderTemplate, fmt.Errorf("renderer returned invalid link %q", link))
	}
	return link, nil
}

func (e *Engine) runSearch(ctx context.Context, p SearchPlan) (string, error) {
	imageURL, err := e.search.Search(ctx, p.Query)
	if err != nil {
		return "", e.upstream(errors.StepImageSearch, err)
	}

	link, err := e.renderer.FromImage(ctx, imageURL, p.Text)
	if err != nil {
		return "", e.upstream(errors.StepRenderCustom, err)
	}
	if !validation.IsValidURL(link) {
		return "", e.upstream(errors.StepRenderCustom, fmt.Errorf("renderer returned invalid link %q", link))
	}
	return link, nil
}

func (e *Engine) persist(ctx context.Context, artifact *models.GeneratedArtifact, log logger.Logger) {
	if e.persister == nil {
		artifact.SaveError = "local persistence is not configured"
		log.Warn("save requested but persistence is not configured", nil)
		return
	}

	path, err := e.persister.Save(ctx, artifact.MemeLink)
	if err != nil {
		perr := errors.NewPersistenceFailedError(err)
		artifact.SaveError = perr.Details
		log.Warn("saving meme failed; continuing", map[string]interface{}{
			"errorCode": string(perr.Code),
			"error":     err.Error(),
		})
		return
	}

	artifact.SavedPath = path
	log.Info("meme saved", map[string]interface{}{"path": path})
	e.open(ctx, artifact.MemeLink, log)
}

func (e *Engine) stickerize(ctx context.Context, memeLink string) (string, error) {
	if e.sticker == nil {
		return "", e.upstream(errors.StepStickerConversion, fmt.Errorf("sticker conversion is not configured"))
	}
	link, err := e.sticker.Convert(ctx, memeLink)
	if err != nil {
		return "", e.upstream(errors.StepStickerConversion, err)
	}
	return link, nil
}

func (e *Engine) open(ctx context.Context, url string, log logger.Logger) {
	if e.opener == nil {
		return
	}
	if err := e.opener.Open(ctx, url); err != nil {
		log.Warn("opening link failed", map[string]interface{}{"url": url, "error": err.Error()})
	}
}

func (e *Engine) upstream(step string, err error) error {
	metrics.UpstreamFailures.WithLabelValues(step).Inc()
	return errors.NewUpstreamError(step, err)
}
