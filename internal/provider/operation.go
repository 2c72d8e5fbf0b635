// Package provider dispatches generation operations to external backends.
//
// Operations form a closed set: each variant implements the unexported
// execute method, so new operations are added here by extending the set
// rather than by copying orchestration code.
package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/illegalcall/quickai/internal/asset"
	"github.com/illegalcall/quickai/internal/models"
)

type Kind string

const (
	KindTextCompletion     Kind = "text-completion"
	KindImageSynthesis     Kind = "image-synthesis"
	KindBackgroundRemoval  Kind = "background-removal"
	KindObjectRemoval      Kind = "object-removal"
	KindDocumentExtraction Kind = "document-extraction"
)

const (
	TitleMaxTokens  = 200
	ReviewMaxTokens = 1000

	// MaxDocumentSize is the largest resume accepted for review.
	MaxDocumentSize = 5 * 1024 * 1024

	backgroundRemovalEffect = "e_background_removal"
	objectRemovalEffect     = "e_gen_remove:prompt_"
)

// ValidationError rejects a request before any backend is called. Warning
// marks problems the client should show as a notice rather than an error.
type ValidationError struct {
	Message string
	Warning bool
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// Record describes the creation row a successful operation produces.
type Record struct {
	Prompt  string
	Type    models.CreationType
	Publish bool
}

// Output holds exactly one of Text, Image (raw bytes still to be normalized)
// or URL (already hosted).
type Output struct {
	Text  string
	Image []byte
	URL   string
}

func (o Output) NeedsNormalization() bool {
	return len(o.Image) > 0
}

// Content is the value persisted and returned to the caller.
func (o Output) Content() string {
	if o.URL != "" {
		return o.URL
	}
	return o.Text
}

type Operation interface {
	Kind() Kind
	Validate() error
	PremiumOnly() bool
	Describe() Record
	execute(ctx context.Context, a *Adapter) (Output, error)
}

type CompletionRequest struct {
	Model     string
	Prompt    string
	MaxTokens int
}

type TextGenerator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type ImageSynthesizer interface {
	Synthesize(ctx context.Context, prompt string) ([]byte, error)
}

type TextExtractor interface {
	ExtractText(document []byte) (string, error)
}

// Backends is the process-wide set of clients, built once at startup.
type Backends struct {
	Text        TextGenerator
	Images      ImageSynthesizer
	Assets      asset.Host
	Documents   TextExtractor
	Models      map[models.CreationType]string
	AssetFolder string
}

type Adapter struct {
	backends Backends
	logger   *slog.Logger
}

func NewAdapter(backends Backends, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		backends: backends,
		logger:   logger.With("component", "provider"),
	}
}

// Execute runs op against its backend. Upstream failures are returned
// wrapped and never retried.
func (a *Adapter) Execute(ctx context.Context, op Operation) (Output, error) {
	a.logger.Info("Dispatching operation", "kind", op.Kind())
	out, err := op.execute(ctx, a)
	if err != nil {
		a.logger.Error("Operation failed", "kind", op.Kind(), "error", err)
		return Output{}, err
	}
	return out, nil
}

func (a *Adapter) complete(ctx context.Context, kind models.CreationType, prompt string, maxTokens int) (string, error) {
	if a.backends.Text == nil {
		return "", errors.New("text generation backend is not configured")
	}
	text, err := a.backends.Text.Complete(ctx, CompletionRequest{
		Model:     a.backends.Models[kind],
		Prompt:    prompt,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("text completion failed: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("text completion returned no content")
	}
	return text, nil
}

func (a *Adapter) assets() (asset.Host, error) {
	if a.backends.Assets == nil {
		return nil, errors.New("asset host is not configured")
	}
	return a.backends.Assets, nil
}

// TextCompletion generates articles and blog titles.
type TextCompletion struct {
	Prompt    string
	MaxTokens int
	Type      models.CreationType
}

func NewArticle(prompt string, length int) TextCompletion {
	return TextCompletion{Prompt: prompt, MaxTokens: length, Type: models.CreationArticle}
}

func NewBlogTitle(prompt string) TextCompletion {
	return TextCompletion{Prompt: prompt, MaxTokens: TitleMaxTokens, Type: models.CreationBlogTitle}
}

func (TextCompletion) Kind() Kind        { return KindTextCompletion }
func (TextCompletion) PremiumOnly() bool { return false }

func (t TextCompletion) Validate() error {
	if strings.TrimSpace(t.Prompt) == "" {
		return invalid("Prompt is required")
	}
	if t.MaxTokens <= 0 {
		return invalid("Length must be a positive number")
	}
	return nil
}

func (t TextCompletion) Describe() Record {
	return Record{Prompt: t.Prompt, Type: t.Type}
}

func (t TextCompletion) execute(ctx context.Context, a *Adapter) (Output, error) {
	text, err := a.complete(ctx, t.Type, t.Prompt, t.MaxTokens)
	if err != nil {
		return Output{}, err
	}
	return Output{Text: text}, nil
}

// ImageSynthesis renders a prompt to an image. The raw bytes still need
// normalizing before they can be stored.
type ImageSynthesis struct {
	Prompt  string
	Publish bool
}

func (ImageSynthesis) Kind() Kind        { return KindImageSynthesis }
func (ImageSynthesis) PremiumOnly() bool { return false }

func (s ImageSynthesis) Validate() error {
	if strings.TrimSpace(s.Prompt) == "" {
		return invalid("Prompt is required")
	}
	return nil
}

func (s ImageSynthesis) Describe() Record {
	return Record{Prompt: s.Prompt, Type: models.CreationImage, Publish: s.Publish}
}

func (s ImageSynthesis) execute(ctx context.Context, a *Adapter) (Output, error) {
	if a.backends.Images == nil {
		return Output{}, errors.New("image synthesis backend is not configured")
	}
	raw, err := a.backends.Images.Synthesize(ctx, s.Prompt)
	if err != nil {
		return Output{}, fmt.Errorf("image synthesis failed: %w", err)
	}
	return Output{Image: raw}, nil
}

// BackgroundRemoval uploads the image with the host's background removal
// effect applied.
type BackgroundRemoval struct {
	Image []byte
}

func (BackgroundRemoval) Kind() Kind        { return KindBackgroundRemoval }
func (BackgroundRemoval) PremiumOnly() bool { return true }

func (b BackgroundRemoval) Validate() error {
	if len(b.Image) == 0 {
		return invalid("Image is required")
	}
	return nil
}

func (BackgroundRemoval) Describe() Record {
	return Record{Prompt: "Remove background from image", Type: models.CreationImage}
}

func (b BackgroundRemoval) execute(ctx context.Context, a *Adapter) (Output, error) {
	host, err := a.assets()
	if err != nil {
		return Output{}, err
	}
	uploaded, err := host.Upload(ctx, bytes.NewReader(b.Image), asset.UploadOptions{
		Folder:         a.backends.AssetFolder,
		ResourceType:   "image",
		Transformation: backgroundRemovalEffect,
	})
	if err != nil {
		return Output{}, fmt.Errorf("background removal failed: %w", err)
	}
	return Output{URL: uploaded.URL}, nil
}

// ObjectRemoval erases a single named object with a generative fill.
type ObjectRemoval struct {
	Image  []byte
	Object string
}

func (ObjectRemoval) Kind() Kind        { return KindObjectRemoval }
func (ObjectRemoval) PremiumOnly() bool { return true }

func (o ObjectRemoval) Validate() error {
	if len(o.Image) == 0 {
		return invalid("Image is required")
	}
	switch tokens := strings.Fields(o.Object); {
	case len(tokens) == 0:
		return invalid("Object name is required")
	case len(tokens) > 1:
		return &ValidationError{Message: "Please enter only one object name", Warning: true}
	}
	return nil
}

func (o ObjectRemoval) Describe() Record {
	return Record{
		Prompt: fmt.Sprintf("Removed %s from image", strings.TrimSpace(o.Object)),
		Type:   models.CreationImage,
	}
}

func (o ObjectRemoval) execute(ctx context.Context, a *Adapter) (Output, error) {
	host, err := a.assets()
	if err != nil {
		return Output{}, err
	}
	uploaded, err := host.Upload(ctx, bytes.NewReader(o.Image), asset.UploadOptions{
		Folder:       a.backends.AssetFolder,
		ResourceType: "image",
	})
	if err != nil {
		return Output{}, fmt.Errorf("failed to upload source image: %w", err)
	}

	u, err := host.TransformURL(uploaded.PublicID, objectRemovalEffect+strings.TrimSpace(o.Object))
	if err != nil {
		return Output{}, fmt.Errorf("object removal failed: %w", err)
	}
	return Output{URL: u}, nil
}

// DocumentExtraction reviews a resume: the PDF is reduced to plain text and
// fed to the text backend wrapped in a review prompt.
type DocumentExtraction struct {
	Document []byte
}

func (DocumentExtraction) Kind() Kind        { return KindDocumentExtraction }
func (DocumentExtraction) PremiumOnly() bool { return true }

func (d DocumentExtraction) Validate() error {
	if len(d.Document) == 0 {
		return invalid("Resume is required")
	}
	if len(d.Document) > MaxDocumentSize {
		return invalid("Resume file size exceeds allowed size (5MB).")
	}
	return nil
}

func (DocumentExtraction) Describe() Record {
	return Record{Prompt: "Review the uploaded resume", Type: models.CreationResumeReview}
}

func (d DocumentExtraction) execute(ctx context.Context, a *Adapter) (Output, error) {
	if a.backends.Documents == nil {
		return Output{}, errors.New("document extraction backend is not configured")
	}
	text, err := a.backends.Documents.ExtractText(d.Document)
	if err != nil {
		return Output{}, fmt.Errorf("text extraction error: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Output{}, errors.New("no text could be extracted from the document")
	}

	review, err := a.complete(ctx, models.CreationResumeReview, ReviewPrompt(text), ReviewMaxTokens)
	if err != nil {
		return Output{}, err
	}
	return Output{Text: review}, nil
}

func ReviewPrompt(resume string) string {
	return fmt.Sprintf(`Review the following resume and provide constructive feedback on its strengths, weaknesses, and areas for improvement.

Resume Content:

%s`, strings.TrimSpace(resume))
}
