// Package provider classifies chat message sentiment through the OpenAI Responses API.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/theimaginaryfoundation/chatlens/analysis/affection"
	"github.com/theimaginaryfoundation/chatlens/analysis/fileutils"
)

const (
	DefaultModel               = "gpt-5-mini"
	DefaultMaxTokensPerMessage = 256

	tracerName = "github.com/theimaginaryfoundation/chatlens/analysis/provider"
)

var ErrMissingAPIKey = errors.New("openai api key is empty (set classifier.api_key or OPENAI_API_KEY)")

// Config configures the OpenAI classifier.
type Config struct {
	APIKey              string
	Model               string
	BaseURL             string
	MaxTokensPerMessage int
	MaxOutputTokens     int64
	Retry               RetryPolicy

	// Tokenizer overrides the model encoding. When nil the loader resolves one through
	// tiktoken and falls back to RuneTokenizer if that fails.
	Tokenizer      Tokenizer
	Logger         zerolog.Logger
	TracerProvider trace.TracerProvider
}

type batchItem struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type sentimentResult struct {
	Index      int     `json:"index"`
	Label      string  `json:"label" jsonschema:"enum=POS,enum=NEG,enum=NEU"`
	Confidence float64 `json:"confidence"`
}

type sentimentBatchResponse struct {
	Results []sentimentResult `json:"results"`
}

var sentimentBatchSchema = GenerateSchema[sentimentBatchResponse]()

// OpenAIClassifier implements affection.Classifier with one Responses call per batch.
type OpenAIClassifier struct {
	client    *openai.Client
	model     string
	tokenizer Tokenizer
	maxTokens int
	maxOut    int64
	retry     RetryPolicy
	tracer    trace.Tracer
	log       zerolog.Logger
}

// NewClassifier builds a classifier from cfg. The SDK's own retries are disabled so that
// cfg.Retry alone governs waits.
func NewClassifier(cfg Config) (*OpenAIClassifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	c := &OpenAIClassifier{
		client:    &client,
		model:     cfg.Model,
		tokenizer: cfg.Tokenizer,
		maxTokens: cfg.MaxTokensPerMessage,
		maxOut:    cfg.MaxOutputTokens,
		retry:     cfg.Retry,
		log:       cfg.Logger.With().Str("component", "provider").Logger(),
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.tokenizer == nil {
		c.tokenizer = RuneTokenizer{}
	}
	if c.retry.MaxAttempts == 0 {
		c.retry = DefaultRetryPolicy()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	c.tracer = tp.Tracer(tracerName)
	return c, nil
}

func (c *OpenAIClassifier) Model() string { return c.model }

// Classify labels texts in one request. Results are mapped back by index; a missing,
// duplicated or out-of-range index fails the whole batch.
func (c *OpenAIClassifier) Classify(ctx context.Context, texts []string) ([]affection.Classification, error) {
	ctx, span := c.tracer.Start(ctx, "provider.classify", trace.WithAttributes(
		attribute.String("model", c.model),
		attribute.Int("batch.size", len(texts)),
	))
	defer span.End()

	out, err := c.classify(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

func (c *OpenAIClassifier) classify(ctx context.Context, texts []string) ([]affection.Classification, error) {
	if len(texts) == 0 {
		return []affection.Classification{}, nil
	}

	input, err := c.buildInput(texts)
	if err != nil {
		return nil, err
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "SentimentBatch",
			Schema:      sentimentBatchSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Sentiment label per chat message"),
			Type:        "json_schema",
		},
	}
	maxOut := c.maxOut
	if maxOut <= 0 {
		maxOut = int64(400 + 40*len(texts))
	}
	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(maxOut),
		Instructions:    openai.String(sentimentPrompt),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(input, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := CallWithRetry(ctx, c.client, params, c.retry)
	if err != nil {
		return nil, fmt.Errorf("classify batch: %w", err)
	}

	outputText := resp.OutputText()
	batch, err := parseBatch(outputText)
	if err != nil {
		return nil, fmt.Errorf("classify batch: %w (model_output_prefix=%q)", err, fileutils.Truncate(outputText, 300))
	}
	return mapResults(batch, len(texts))
}

func (c *OpenAIClassifier) buildInput(texts []string) (string, error) {
	items := make([]batchItem, len(texts))
	for i, t := range texts {
		items[i] = batchItem{Index: i, Text: c.tokenizer.Truncate(t, c.maxTokens)}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal batch input: %w", err)
	}
	return string(b), nil
}

func parseBatch(outputText string) (sentimentBatchResponse, error) {
	var doc any
	if err := fileutils.DecodeModelJSON(outputText, &doc); err != nil {
		return sentimentBatchResponse{}, err
	}
	if err := ValidateDocument(sentimentBatchSchema, doc); err != nil {
		return sentimentBatchResponse{}, err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return sentimentBatchResponse{}, err
	}
	var batch sentimentBatchResponse
	if err := json.Unmarshal(b, &batch); err != nil {
		return sentimentBatchResponse{}, err
	}
	return batch, nil
}

func mapResults(batch sentimentBatchResponse, n int) ([]affection.Classification, error) {
	out := make([]affection.Classification, n)
	seen := make([]bool, n)
	for _, r := range batch.Results {
		if r.Index < 0 || r.Index >= n {
			return nil, fmt.Errorf("result index %d out of range [0,%d)", r.Index, n)
		}
		if seen[r.Index] {
			return nil, fmt.Errorf("duplicate result index %d", r.Index)
		}
		seen[r.Index] = true
		out[r.Index] = affection.Classification{Label: affection.Label(r.Label), Confidence: r.Confidence}
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("missing result for index %d", i)
		}
	}
	return out, nil
}

// Loader prepares an OpenAIClassifier on first use. It implements affection.Loader.
type Loader struct {
	cfg Config
}

func NewLoader(cfg Config) *Loader {
	return &Loader{cfg: cfg}
}

func (l *Loader) Load(ctx context.Context, progress affection.ProgressFunc) (affection.Classifier, error) {
	cfg := l.cfg
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	report(progress, affection.Progress{Status: affection.StatusLoading, Name: cfg.Model, File: "tokenizer"})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Tokenizer == nil {
		tok, err := NewTokenizer(cfg.Model)
		if err != nil {
			cfg.Logger.Warn().Err(err).Str("model", cfg.Model).Msg("tokenizer unavailable, approximating by runes")
			tok = RuneTokenizer{}
		}
		cfg.Tokenizer = tok
	}
	report(progress, affection.Progress{Status: affection.StatusLoading, Name: cfg.Model, File: "client", Progress: 50})
	return NewClassifier(cfg)
}

func report(f affection.ProgressFunc, p affection.Progress) {
	if f != nil {
		f(p)
	}
}
