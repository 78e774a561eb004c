package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/raine/loadsheet-bot/internal/category"
	"github.com/raine/loadsheet-bot/internal/loadsheet"
	"github.com/raine/loadsheet-bot/internal/pipeline"
	"github.com/raine/loadsheet-bot/internal/storage"
	"github.com/raine/loadsheet-bot/internal/table"
	"github.com/raine/loadsheet-bot/internal/tablefile"
)

// DefaultBuildTimeout bounds a single build including downloads.
const DefaultBuildTimeout = 5 * time.Minute

// historyLimit is the number of runs /history lists.
const historyLimit = 5

// BuildResult is the outcome of a background build, delivered to the session
// worker in a build_complete message.
type BuildResult struct {
	BuildID      string
	ProductFile  string
	CategoryFile string
	TargetDepth  int
	Result       *pipeline.Result
	File         []byte
	FileName     string
	Duration     time.Duration
	Err          error
}

type buildRequest struct {
	id         string
	products   storage.Upload
	categories *storage.Upload
	opts       pipeline.Options
	format     tablefile.Format
}

// BuildHandler handles uploads of the input tables and the build commands.
type BuildHandler struct {
	tg       BotAPI
	store    storage.Store
	defaults Defaults
	timeout  time.Duration
}

// NewBuildHandler creates a new BuildHandler.
func NewBuildHandler(tg BotAPI, store storage.Store, defaults Defaults) *BuildHandler {
	if defaults.Build.TargetDepth < 1 {
		defaults.Build = pipeline.DefaultOptions()
	}
	if defaults.Format == "" {
		defaults.Format = tablefile.FormatCSV
	}
	return &BuildHandler{
		tg:       tg,
		store:    store,
		defaults: defaults,
		timeout:  DefaultBuildTimeout,
	}
}

// HandleDocument stores an uploaded product or category export as the user's
// pending input of that kind.
// Called from session worker - no locking needed.
func (h *BuildHandler) HandleDocument(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	doc := message.Document
	name := doc.FileName
	if name == "" {
		name = doc.FileID
	}

	if !isTableFile(name, doc.MimeType) {
		session.reply(MsgUnsupportedFile)
		return
	}
	if doc.FileSize > maxUploadSize {
		session.reply(MsgFileTooLarge, humanize.Bytes(uint64(doc.FileSize)), humanize.Bytes(maxUploadSize))
		return
	}

	session.sendChatAction(tgbotapi.ChatTyping)

	data, err := downloadFileID(ctx, h.tg.GetFileDirectURL, doc.FileID)
	if err != nil {
		log.Error().Err(err).Str("fileID", doc.FileID).Msg("failed to download upload")
		session.reply(MsgDownloadFailed)
		return
	}

	t, err := tablefile.Read(name, bytes.NewReader(data))
	if err != nil {
		session.reply(MsgFileUnreadable, escapeMarkdown(displayName(name)), escapeMarkdown(err.Error()))
		return
	}

	kind, ok := classifyTable(t)
	if !ok {
		session.reply(MsgUnknownTable, escapeMarkdown(displayName(name)))
		return
	}
	if err := t.Require(requiredColumns(kind)...); err != nil {
		var schemaErr *table.SchemaError
		if errors.As(err, &schemaErr) {
			session.reply(MsgSchemaMissing, escapeMarkdown(displayName(name)), escapeMarkdown(strings.Join(schemaErr.Missing, ", ")))
			return
		}
		session.replyWithError(err)
		return
	}

	upload := &storage.Upload{
		TelegramID: session.userId,
		Kind:       kind,
		FileID:     doc.FileID,
		FileName:   name,
		Rows:       t.Len(),
	}
	if err := h.store.SetUpload(upload); err != nil {
		session.replyWithError(err)
		return
	}

	log.Info().
		Int64("userId", session.userId).
		Str("kind", string(kind)).
		Str("fileName", name).
		Int("rows", t.Len()).
		Msg("stored upload")

	uploads, err := h.store.GetUploads(session.userId)
	if err != nil {
		session.replyWithError(err)
		return
	}

	text := MsgUploadProducts
	if kind == storage.UploadCategories {
		text = MsgUploadCategories
	}
	next := MsgUploadNextBuild
	if _, ok := uploads[storage.UploadProducts]; !ok {
		next = MsgUploadNeedProduct
	} else if _, ok := uploads[storage.UploadCategories]; !ok {
		next = MsgUploadNextProduct
	}
	session.reply(text+"\n"+next,
		escapeMarkdown(displayName(name)),
		pluralize("row", "rows", t.Len()),
		humanize.Bytes(uint64(len(data))),
	)
}

// HandleBuildCommand starts a build from the user's pending uploads. The
// build runs in the background and reports back with a build_complete
// message. An optional argument picks the output format.
// Called from session worker - no locking needed.
func (h *BuildHandler) HandleBuildCommand(ctx context.Context, session *UserSession, args []string) {
	if session.IsBuilding() {
		session.reply(MsgBuildInProgress)
		return
	}

	format := h.defaults.Format
	if len(args) > 0 {
		f, err := tablefile.ParseFormat(args[0])
		if err != nil {
			session.reply(MsgBuildUnknownFmt, escapeMarkdown(args[0]))
			return
		}
		format = f
	}

	uploads, err := h.store.GetUploads(session.userId)
	if err != nil {
		session.replyWithError(err)
		return
	}
	products, ok := uploads[storage.UploadProducts]
	if !ok {
		session.reply(MsgNoProducts)
		return
	}

	req := buildRequest{
		id:       uuid.New().String(),
		products: products,
		opts:     h.defaults.Build,
		format:   format,
	}
	req.opts.TargetDepth = h.targetDepth(session.userId)
	if c, ok := uploads[storage.UploadCategories]; ok {
		req.categories = &c
	}

	session.reply(MsgBuildStarted, req.opts.TargetDepth)
	if req.categories == nil {
		session.reply(MsgBuildNoCategories)
	}

	buildCtx, cancel := context.WithTimeout(session.ctx, h.timeout)
	session.setBuild(&activeBuild{id: req.id, cancel: cancel, startedAt: time.Now()})

	log.Info().
		Int64("userId", session.userId).
		Str("buildId", req.id).
		Int("targetDepth", req.opts.TargetDepth).
		Str("format", string(format)).
		Msg("starting build")

	go func() {
		actionCtx, stopAction := context.WithCancel(buildCtx)
		go session.startChatActionLoop(actionCtx, tgbotapi.ChatUploadDocument)

		result := h.runBuild(buildCtx, req)
		stopAction()

		// Send results back through worker channel
		session.Send(SessionMessage{
			Type:        "build_complete",
			Ctx:         ctx,
			BuildResult: result,
		})
	}()
}

// runBuild downloads the inputs, runs the pipeline and encodes the output.
func (h *BuildHandler) runBuild(ctx context.Context, req buildRequest) *BuildResult {
	start := time.Now()
	res := &BuildResult{
		BuildID:     req.id,
		ProductFile: req.products.FileName,
		TargetDepth: req.opts.TargetDepth,
	}
	if req.categories != nil {
		res.CategoryFile = req.categories.FileName
	}
	fail := func(err error) *BuildResult {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}

	var products, categories *table.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := h.fetchTable(gctx, req.products)
		products = t
		return err
	})
	if req.categories != nil {
		g.Go(func() error {
			t, err := h.fetchTable(gctx, *req.categories)
			categories = t
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fail(err)
	}

	out, err := pipeline.Start(products, categories, req.opts).Wait(ctx)
	if err != nil {
		return fail(err)
	}

	data, err := tablefile.Encode(out.Table, req.format)
	if err != nil {
		return fail(err)
	}

	res.Result = out
	res.File = data
	res.FileName = outputFileName(req.products.FileName, req.format)
	res.Duration = time.Since(start)
	return res
}

func (h *BuildHandler) fetchTable(ctx context.Context, upload storage.Upload) (*table.Table, error) {
	data, err := downloadFileID(ctx, h.tg.GetFileDirectURL, upload.FileID)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", upload.FileName, err)
	}
	t, err := tablefile.Read(upload.FileName, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", upload.FileName, err)
	}
	return t, nil
}

// HandleBuildComplete records the run and sends the loadsheet, or the
// error, to the user.
// Called from session worker - no locking needed.
func (h *BuildHandler) HandleBuildComplete(session *UserSession, r *BuildResult) {
	if r == nil {
		return
	}
	if !session.finishBuild(r.BuildID) {
		log.Info().Int64("userId", session.userId).Str("buildId", r.BuildID).Msg("discarding result of cancelled build")
		return
	}

	h.saveRun(session.userId, r)

	if r.Err != nil {
		log.Warn().Err(r.Err).Int64("userId", session.userId).Str("buildId", r.BuildID).Msg("build failed")
		if errors.Is(r.Err, context.DeadlineExceeded) {
			session.reply(MsgBuildTimedOut)
			return
		}
		session.reply(MsgBuildFailed, escapeMarkdown(r.Err.Error()))
		return
	}

	stats := r.Result.Stats
	caption := formatReplyText(MsgBuildSummary,
		pluralize("row", "rows", stats.OutputRows),
		pluralize("input row", "input rows", stats.InputRows),
		stats.DroppedParents,
		stats.InvalidPrices,
		stats.CategoryFallbacks,
		r.TargetDepth,
		r.Duration.Round(time.Millisecond),
	)
	if err := session.sendDocument(r.FileName, r.File, caption); err != nil {
		session.replyWithError(err)
	}
}

func (h *BuildHandler) saveRun(telegramID int64, r *BuildResult) {
	run := &storage.Run{
		ID:           r.BuildID,
		TelegramID:   telegramID,
		ProductFile:  r.ProductFile,
		CategoryFile: r.CategoryFile,
		TargetDepth:  r.TargetDepth,
		Status:       storage.RunSucceeded,
		Duration:     r.Duration,
	}
	if r.Err != nil {
		run.Status = storage.RunFailed
		run.Error = r.Err.Error()
	} else {
		run.InputRows = r.Result.Stats.InputRows
		run.OutputRows = r.Result.Stats.OutputRows
	}
	if err := h.store.SaveRun(run); err != nil {
		log.Error().Err(err).Str("buildId", r.BuildID).Msg("failed to save run")
	}
}

// HandleDepthCommand shows or sets the user's category depth.
func (h *BuildHandler) HandleDepthCommand(session *UserSession, args []string) {
	if len(args) == 0 {
		session.reply(MsgDepthCurrent, h.targetDepth(session.userId))
		return
	}

	depth := 0
	if !strings.EqualFold(args[0], "default") {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			session.reply(MsgDepthInvalid)
			return
		}
		depth = n
	}

	if err := h.store.SetTargetDepth(session.userId, depth); err != nil {
		session.replyWithError(err)
		return
	}
	session.reply(MsgDepthSet, h.targetDepth(session.userId))
}

// HandleStatusCommand lists the user's pending uploads.
func (h *BuildHandler) HandleStatusCommand(session *UserSession) {
	uploads, err := h.store.GetUploads(session.userId)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if len(uploads) == 0 {
		session.reply(MsgStatusNone)
		return
	}

	var sb strings.Builder
	sb.WriteString(MsgStatusTitle)
	for _, kind := range []storage.UploadKind{storage.UploadProducts, storage.UploadCategories} {
		u, ok := uploads[kind]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("• %s: %s, %s, %s\n",
			kind, escapeMarkdown(displayName(u.FileName)), pluralize("row", "rows", u.Rows), humanize.Time(u.UploadedAt)))
	}
	if session.IsBuilding() {
		sb.WriteString("\n" + MsgBuildInProgress)
	}
	session.reply("%s", sb.String())
}

// HandleHistoryCommand lists the user's recent builds.
func (h *BuildHandler) HandleHistoryCommand(session *UserSession) {
	runs, err := h.store.ListRuns(session.userId, historyLimit)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if len(runs) == 0 {
		session.reply(MsgNoHistory)
		return
	}

	var sb strings.Builder
	sb.WriteString(MsgHistoryTitle)
	for _, run := range runs {
		sb.WriteString(formatRun(run))
		sb.WriteString("\n")
	}
	session.reply("%s", sb.String())
}

func formatRun(run storage.Run) string {
	when := humanize.Time(run.CreatedAt)
	if run.Status == storage.RunFailed {
		return fmt.Sprintf("• %s: %s failed: %s", when, escapeMarkdown(displayName(run.ProductFile)), escapeMarkdown(run.Error))
	}
	return fmt.Sprintf("• %s: %s, %s at depth %d",
		when, escapeMarkdown(displayName(run.ProductFile)), pluralize("row", "rows", run.OutputRows), run.TargetDepth)
}

// targetDepth returns the user's depth, or the default when unset.
func (h *BuildHandler) targetDepth(telegramID int64) int {
	depth, err := h.store.GetTargetDepth(telegramID)
	if err != nil {
		log.Warn().Err(err).Int64("userId", telegramID).Msg("failed to get target depth")
	}
	if depth < 1 {
		return h.defaults.Build.TargetDepth
	}
	return depth
}

// classifyTable tells product and category exports apart by their header.
func classifyTable(t *table.Table) (storage.UploadKind, bool) {
	switch {
	case t.Has(loadsheet.ColumnCode):
		return storage.UploadProducts, true
	case t.Has(category.ColumnID) && t.Has(category.ColumnParentID):
		return storage.UploadCategories, true
	}
	return "", false
}

func requiredColumns(kind storage.UploadKind) []string {
	if kind == storage.UploadCategories {
		return category.RequiredColumns
	}
	return loadsheet.RequiredColumns
}

func isTableFile(name, mimeType string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return true
	}
	return mimeType == "text/csv"
}

// outputFileName derives the loadsheet file name from the product file name.
func outputFileName(productFile string, format tablefile.Format) string {
	base := strings.TrimSuffix(filepath.Base(productFile), filepath.Ext(productFile))
	if base == "" || base == "." {
		base = "products"
	}
	return base + "_loadsheet" + format.Ext()
}
