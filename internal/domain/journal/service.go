package journal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
	"github.com/yanqian/health-journal/internal/domain/interpreter"
	"github.com/yanqian/health-journal/internal/domain/judge"
	"github.com/yanqian/health-journal/internal/domain/merge"
	"github.com/yanqian/health-journal/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/health-journal/pkg/errors"
	"github.com/yanqian/health-journal/pkg/metrics"
	"github.com/yanqian/health-journal/pkg/util"
)

// Config drives extraction and transcription.
type Config struct {
	ExtractModel      string
	ExtractPrompt     string
	Temperature       float32
	ExtractTimeout    time.Duration
	TranscribeModel   string
	TranscribeLang    string
	TranscribeTimeout time.Duration
	MaxAudioBytes     int64
	AudioPrefix       string
}

// Service orchestrates the health journal workflows.
type Service interface {
	UpdateHealthData(ctx context.Context, req UpdateRequest) (UpdateResponse, error)
	InterpretUpdate(ctx context.Context, req UpdateRequest) ([]healthrecord.Change, error)
	JudgeHealthData(ctx context.Context, req JudgeRequest) JudgeResponse
	ExtractHealthData(ctx context.Context, req ExtractRequest) (ExtractResponse, error)
	Transcribe(ctx context.Context, req TranscribeRequest) (TranscribeResponse, error)

	CreateEntry(ctx context.Context, req CreateEntryRequest) (Entry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (Entry, error)
	ListEntries(ctx context.Context, filter ListFilter) ([]Entry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	ApplyUpdate(ctx context.Context, req ApplyUpdateRequest) (ApplyUpdateResponse, error)
}

type service struct {
	cfg    Config
	interp interpreter.Interpreter
	rules  interpreter.Interpreter
	engine *merge.Engine
	judge  judge.Service
	repo   Repository
	blobs  BlobStore
	client ChatClient
	logger *slog.Logger
}

// NewService wires up the journal domain. rules is the deterministic
// interpreter extraction falls back to; blobs and client may be nil.
func NewService(cfg Config, interp, rules interpreter.Interpreter, engine *merge.Engine, judgeSvc judge.Service, repo Repository, blobs BlobStore, client ChatClient, logger *slog.Logger) Service {
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = 30 * time.Second
	}
	if cfg.TranscribeTimeout <= 0 {
		cfg.TranscribeTimeout = 60 * time.Second
	}
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = 25 << 20
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = "whisper-1"
	}
	if cfg.AudioPrefix == "" {
		cfg.AudioPrefix = "audio"
	}
	return &service{
		cfg:    cfg,
		interp: interp,
		rules:  rules,
		engine: engine,
		judge:  judgeSvc,
		repo:   repo,
		blobs:  blobs,
		client: client,
		logger: logger.With("component", "journal.service"),
	}
}

func (s *service) InterpretUpdate(ctx context.Context, req UpdateRequest) ([]healthrecord.Change, error) {
	changes, err := s.interp.Interpret(ctx, req.OriginalData, req.UpdateTranscript)
	if err != nil {
		return nil, wrapInterpretError(err)
	}
	return changes, nil
}

func (s *service) UpdateHealthData(ctx context.Context, req UpdateRequest) (UpdateResponse, error) {
	res, err := s.merge(ctx, req.OriginalData, req.UpdateTranscript)
	if err != nil {
		return UpdateResponse{}, err
	}
	return UpdateResponse{
		Success:  true,
		Data:     res.Record,
		Changes:  res.Applied,
		Skipped:  res.Skipped,
		Warnings: res.Warnings,
	}, nil
}

func (s *service) merge(ctx context.Context, record healthrecord.Record, update string) (merge.Result, error) {
	changes, err := s.InterpretUpdate(ctx, UpdateRequest{OriginalData: record, UpdateTranscript: update})
	if err != nil {
		return merge.Result{}, err
	}
	res := s.engine.Apply(record, changes)
	s.logger.Info("update merged",
		"date", res.Record.Date,
		"applied", len(res.Applied),
		"skipped", len(res.Skipped),
		"warnings", len(res.Warnings),
	)
	return res, nil
}

func (s *service) JudgeHealthData(ctx context.Context, req JudgeRequest) JudgeResponse {
	verdict := s.judge.Evaluate(ctx, req)
	s.logger.Info("merge judged", "overall", verdict.Overall, "passed", verdict.Passed, "method", verdict.Method)
	return JudgeResponse{Judge: verdict}
}

func (s *service) ExtractHealthData(ctx context.Context, req ExtractRequest) (ExtractResponse, error) {
	transcript := strings.TrimSpace(req.Transcript)
	if transcript == "" {
		return ExtractResponse{}, apperrors.Wrap(CodeInvalidInput, "transcript cannot be empty", nil)
	}
	date, err := resolveDate(req.Date)
	if err != nil {
		return ExtractResponse{}, err
	}

	if s.client != nil {
		resp, err := s.extractWithLLM(ctx, transcript, date)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return ExtractResponse{}, apperrors.Wrap(CodeInterpretationTimeout, "extraction cancelled", ctx.Err())
		}
		s.logger.Warn("llm extraction failed, using rules", "error", err)
	}
	return s.extractWithRules(ctx, transcript, date)
}

func (s *service) extractWithLLM(ctx context.Context, transcript, date string) (ExtractResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ExtractTimeout)
	defer cancel()

	completion, err := s.client.CreateChatCompletion(callCtx, chatgpt.ChatCompletionRequest{
		Model: s.cfg.ExtractModel,
		Messages: []chatgpt.Message{
			{Role: "system", Content: s.buildExtractPrompt()},
			{Role: "user", Content: fmt.Sprintf("Date: %s\nTranscript: %s", date, transcript)},
		},
		Temperature:    s.cfg.Temperature,
		ResponseFormat: &chatgpt.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return ExtractResponse{}, fmt.Errorf("chatgpt request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return ExtractResponse{}, errors.New("chatgpt returned no choices")
	}
	record, err := healthrecord.Decode([]byte(chatgpt.ExtractJSON(completion.Choices[0].Message.Content)))
	if err != nil {
		return ExtractResponse{}, fmt.Errorf("decode extracted record: %w", err)
	}
	record.Date = date
	record, warnings := healthrecord.Normalize(record)
	return ExtractResponse{
		Data:     record,
		Method:   ExtractMethodLLM,
		Warnings: warnings,
		Usage: metrics.TokenUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		},
	}, nil
}

func (s *service) extractWithRules(ctx context.Context, transcript, date string) (ExtractResponse, error) {
	empty := healthrecord.Record{Date: date}
	var (
		changes []healthrecord.Change
		unread  []string
		err     error
	)
	if partial, ok := s.rules.(partialInterpreter); ok {
		changes, unread, err = partial.InterpretPartial(ctx, empty, transcript)
	} else {
		changes, err = s.rules.Interpret(ctx, empty, transcript)
	}
	if errors.Is(err, interpreter.ErrUnparseableUpdate) {
		return ExtractResponse{
			Data:     empty,
			Method:   ExtractMethodRules,
			Warnings: []string{"no health information recognised in transcript"},
		}, nil
	}
	if err != nil {
		return ExtractResponse{}, wrapInterpretError(err)
	}
	res := s.engine.Apply(empty, changes)
	warnings := res.Warnings
	for _, skipped := range res.Skipped {
		warnings = append(warnings, skipped.Error())
	}
	for _, fragment := range unread {
		warnings = append(warnings, fmt.Sprintf("could not read %q", fragment))
	}
	return ExtractResponse{Data: res.Record, Method: ExtractMethodRules, Warnings: warnings}, nil
}

// partialInterpreter is implemented by interpreters that can report the
// fragments they could not read instead of failing on them.
type partialInterpreter interface {
	InterpretPartial(ctx context.Context, record healthrecord.Record, text string) ([]healthrecord.Change, []string, error)
}

func (s *service) buildExtractPrompt() string {
	base := strings.TrimSpace(s.cfg.ExtractPrompt)
	if base == "" {
		base = "You turn a spoken daily health journal into a structured record."
	}
	enforcer := ` Respond ONLY with minified JSON of shape {"date":"YYYY-MM-DD","screenTimeHours":number,"workouts":[{"type":string,"durationMinutes":number,"distanceKm":number,"intensity":1-10,"notes":string}],"meals":[{"type":"Breakfast|Lunch|Dinner|Snacks|Coffee","notes":string}],"waterIntakeLiters":number,"painDiscomfort":{"location":string,"intensity":1-10,"notes":string},"sleep":{"hours":number,"quality":1-10},"energyLevel":1-10,"mood":{"rating":1-10,"notes":string},"weightKg":number,"otherActivities":string,"notes":string}.` +
		` Omit fields the transcript does not mention. Use one meal entry per meal type.`
	return base + enforcer
}

func (s *service) Transcribe(ctx context.Context, req TranscribeRequest) (TranscribeResponse, error) {
	if len(req.Audio) == 0 {
		return TranscribeResponse{}, apperrors.Wrap(CodeInvalidInput, "audio is required", nil)
	}
	if int64(len(req.Audio)) > s.cfg.MaxAudioBytes {
		return TranscribeResponse{}, apperrors.Wrap(CodeInvalidInput, fmt.Sprintf("audio exceeds %d bytes", s.cfg.MaxAudioBytes), nil)
	}

	key := fmt.Sprintf("%s/%s%s", s.cfg.AudioPrefix, uuid.NewString(), audioExtension(req.Filename, req.MimeType))
	var audioURL string
	if s.blobs != nil {
		if _, err := s.blobs.Put(ctx, key, req.Audio, req.MimeType); err != nil {
			s.logger.Warn("audio upload failed", "key", key, "error", err)
		} else if url, err := s.blobs.URL(ctx, key); err != nil {
			s.logger.Warn("audio url failed", "key", key, "error", err)
		} else {
			audioURL = url
		}
	}

	if s.client == nil {
		return TranscribeResponse{}, apperrors.Wrap(CodeTranscriptionError, "transcription is not configured, please retry recording later", nil)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.TranscribeTimeout)
	defer cancel()
	resp, err := s.client.CreateTranscription(callCtx, chatgpt.TranscriptionRequest{
		Model:    s.cfg.TranscribeModel,
		Filename: filepath.Base(key),
		Audio:    bytes.NewReader(req.Audio),
		Language: s.cfg.TranscribeLang,
	})
	if err != nil {
		return TranscribeResponse{}, apperrors.Wrap(CodeTranscriptionError, "transcription failed, please retry recording", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return TranscribeResponse{}, apperrors.Wrap(CodeTranscriptionError, "no speech recognised, please retry recording", nil)
	}
	return TranscribeResponse{Transcript: text, AudioURL: audioURL}, nil
}

func (s *service) CreateEntry(ctx context.Context, req CreateEntryRequest) (Entry, error) {
	dateInput := req.Date
	if dateInput == "" && req.Record != nil {
		dateInput = req.Record.Date
	}
	date, err := resolveDate(dateInput)
	if err != nil {
		return Entry{}, err
	}

	var record healthrecord.Record
	if req.Record != nil {
		record = req.Record.Clone()
		record.Date = date
		if issues := healthrecord.Validate(record); len(issues) > 0 {
			return Entry{}, apperrors.WithDetails(CodeInvalidInput, "record is invalid", nil, issues)
		}
	} else {
		extracted, err := s.ExtractHealthData(ctx, ExtractRequest{Transcript: req.Transcript, Date: date})
		if err != nil {
			return Entry{}, err
		}
		record = extracted.Data
	}

	now := util.NowUTC()
	entry := Entry{
		ID:         uuid.New(),
		Date:       date,
		Transcript: strings.TrimSpace(req.Transcript),
		AudioURL:   strings.TrimSpace(req.AudioURL),
		Record:     record,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return Entry{}, apperrors.Wrap(CodeStorageError, "failed to save entry", err)
	}
	s.logger.Info("entry created", "id", entry.ID, "date", entry.Date)
	return entry, nil
}

func (s *service) GetEntry(ctx context.Context, id uuid.UUID) (Entry, error) {
	entry, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return Entry{}, apperrors.Wrap(CodeStorageError, "failed to load entry", err)
	}
	if !ok {
		return Entry{}, apperrors.Wrap(CodeNotFound, "entry not found", nil)
	}
	return entry, nil
}

func (s *service) ListEntries(ctx context.Context, filter ListFilter) ([]Entry, error) {
	for _, bound := range []*string{&filter.From, &filter.To} {
		if strings.TrimSpace(*bound) == "" {
			*bound = ""
			continue
		}
		date, err := healthrecord.ParseDate(*bound)
		if err != nil {
			return nil, apperrors.Wrap(CodeInvalidInput, fmt.Sprintf("invalid date %q", *bound), err)
		}
		*bound = date
	}
	if filter.From != "" && filter.To != "" && filter.From > filter.To {
		return nil, apperrors.Wrap(CodeInvalidInput, "from must not be after to", nil)
	}
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(CodeStorageError, "failed to list entries", err)
	}
	return entries, nil
}

func (s *service) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return apperrors.Wrap(CodeNotFound, "entry not found", nil)
		}
		return apperrors.Wrap(CodeStorageError, "failed to delete entry", err)
	}
	s.logger.Info("entry deleted", "id", id)
	return nil
}

func (s *service) ApplyUpdate(ctx context.Context, req ApplyUpdateRequest) (ApplyUpdateResponse, error) {
	entry, err := s.GetEntry(ctx, req.ID)
	if err != nil {
		return ApplyUpdateResponse{}, err
	}
	if req.ExpectedVersion != 0 && req.ExpectedVersion != entry.Version {
		return ApplyUpdateResponse{}, versionConflict(req.ExpectedVersion, entry.Version)
	}

	res, err := s.merge(ctx, entry.Record, req.UpdateTranscript)
	if err != nil {
		return ApplyUpdateResponse{}, err
	}

	loaded := entry.Version
	entry.Record = res.Record
	entry.Transcript = joinTranscript(entry.Transcript, req.UpdateTranscript)
	entry.UpdatedAt = util.NowUTC()
	saved, err := s.repo.Update(ctx, entry, loaded)
	switch {
	case errors.Is(err, ErrVersionConflict):
		return ApplyUpdateResponse{}, versionConflict(loaded, -1)
	case errors.Is(err, ErrEntryNotFound):
		return ApplyUpdateResponse{}, apperrors.Wrap(CodeNotFound, "entry not found", nil)
	case err != nil:
		return ApplyUpdateResponse{}, apperrors.Wrap(CodeStorageError, "failed to save entry", err)
	}
	return ApplyUpdateResponse{
		Entry:    saved,
		Changes:  res.Applied,
		Skipped:  res.Skipped,
		Warnings: res.Warnings,
	}, nil
}

func versionConflict(expected, current int) error {
	details := map[string]int{"expectedVersion": expected}
	if current >= 0 {
		details["currentVersion"] = current
	}
	return apperrors.WithDetails(CodeVersionConflict, "entry was modified concurrently, reload and retry", ErrVersionConflict, details)
}

func joinTranscript(existing, update string) string {
	existing = strings.TrimSpace(existing)
	update = strings.TrimSpace(update)
	if existing == "" {
		return update
	}
	return existing + "\n" + update
}

func resolveDate(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return util.TodayUTC(), nil
	}
	date, err := healthrecord.ParseDate(raw)
	if err != nil {
		return "", apperrors.Wrap(CodeInvalidInput, fmt.Sprintf("invalid date %q", raw), err)
	}
	return date, nil
}

var audioExtensions = map[string]string{
	"audio/webm":  ".webm",
	"audio/ogg":   ".ogg",
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/mp4":   ".m4a",
	"audio/x-m4a": ".m4a",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
}

func audioExtension(filename, mimeType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return ext
	}
	base, _, _ := strings.Cut(strings.ToLower(mimeType), ";")
	if ext, ok := audioExtensions[strings.TrimSpace(base)]; ok {
		return ext
	}
	return ".webm"
}

// wrapInterpretError converts interpreter failures into coded application errors.
func wrapInterpretError(err error) error {
	var ambiguous *interpreter.AmbiguousReferenceError
	var underspecified *interpreter.UnderspecifiedUpdateError
	switch {
	case errors.As(err, &ambiguous):
		return apperrors.WithDetails(CodeAmbiguousReference, ambiguous.Error(), err, ambiguous)
	case errors.As(err, &underspecified):
		return apperrors.WithDetails(CodeUnderspecifiedUpdate, underspecified.Error(), err, underspecified)
	case errors.Is(err, interpreter.ErrEmptyUpdate):
		return apperrors.Wrap(CodeEmptyUpdate, "update transcript cannot be empty", nil)
	case errors.Is(err, interpreter.ErrUpdateTooLong):
		return apperrors.Wrap(CodeInvalidInput, "update transcript is too long", nil)
	case errors.Is(err, interpreter.ErrUnparseableUpdate):
		return apperrors.Wrap(CodeUnparseableUpdate, "could not interpret update", err)
	case errors.Is(err, interpreter.ErrInterpretationTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(CodeInterpretationTimeout, "interpretation timed out", err)
	default:
		return apperrors.Wrap(CodeLLMError, "could not interpret update", err)
	}
}
