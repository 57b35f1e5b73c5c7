// Package tokens estimates how many model tokens an aggregate will cost a
// downstream consumer.
package tokens

import (
	"errors"
	"fmt"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
	hf "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	"go.uber.org/zap"
)

// Tokenizer backends.
const (
	BackendTiktoken    = "tiktoken"
	BackendHuggingFace = "huggingface"
)

const (
	// DefaultModel is used by tiktoken when no model is configured.
	DefaultModel = "gpt-4o"
	// DefaultHFModel is the Hugging Face Hub model used without a model or
	// tokenizer file.
	DefaultHFModel = "gpt2"
)

// ErrUnknownBackend is returned for a backend other than tiktoken or
// huggingface.
var ErrUnknownBackend = errors.New("unsupported tokenizer")

// Options selects and configures a Counter.
type Options struct {
	Backend string
	Model   string
	// File is a local tokenizer.json for the huggingface backend.
	File string
}

// ValidateBackend checks a backend name; empty means tiktoken.
func ValidateBackend(name string) error {
	switch strings.ToLower(name) {
	case "", BackendTiktoken, BackendHuggingFace:
		return nil
	}
	return fmt.Errorf("%w %q: use %s or %s", ErrUnknownBackend, name, BackendTiktoken, BackendHuggingFace)
}

// New returns the Counter described by opts.
func New(opts Options, logger *zap.Logger) (Counter, error) {
	if err := ValidateBackend(opts.Backend); err != nil {
		return nil, err
	}
	if strings.EqualFold(opts.Backend, BackendHuggingFace) {
		return NewHuggingFace(opts.Model, opts.File, logger)
	}
	return NewTiktoken(opts.Model, logger)
}

// Counter counts tokens in a piece of text.
type Counter interface {
	CountTokens(text string) int
}

// Tiktoken counts with an OpenAI BPE encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

func (t *Tiktoken) CountTokens(text string) int {
	if t == nil || t.enc == nil {
		return 0
	}
	return len(t.enc.EncodeOrdinary(text))
}

// NewTiktoken loads the encoding for model, falling back to DefaultModel
// when the model is unknown. The first call may download the BPE ranks.
func NewTiktoken(model string, logger *zap.Logger) (*Tiktoken, error) {
	if model == "" {
		model = DefaultModel
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Warn("Unknown tokenizer model, using default", zap.String("model", model), zap.String("default", DefaultModel), zap.Error(err))
		enc, err = tiktoken.EncodingForModel(DefaultModel)
		if err != nil {
			return nil, fmt.Errorf("failed to get tiktoken encoding for default model '%s': %w", DefaultModel, err)
		}
	}
	return &Tiktoken{enc: enc}, nil
}

// HuggingFace counts with a tokenizer.json model.
type HuggingFace struct {
	tk     *hf.Tokenizer
	logger *zap.Logger
}

func (h *HuggingFace) CountTokens(text string) int {
	if h == nil || h.tk == nil {
		return 0
	}
	en, err := h.tk.EncodeSingle(text)
	if err != nil {
		h.logger.Warn("Tokenizer failed to encode text", zap.Error(err))
		return 0
	}
	return len(en.Tokens)
}

// NewHuggingFace loads file when set, otherwise the tokenizer.json of model
// from the Hub cache, downloading it on first use.
func NewHuggingFace(model, file string, logger *zap.Logger) (*HuggingFace, error) {
	if file != "" {
		logger.Debug("Loading tokenizer file", zap.String("file", file))
		tk, err := pretrained.FromFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer from file %s: %w", file, err)
		}
		return &HuggingFace{tk: tk, logger: logger}, nil
	}

	if model == "" {
		model = DefaultHFModel
	}
	logger.Info("Loading Hugging Face tokenizer, this may download files", zap.String("model", model))
	path, err := hf.CachedPath(model, "tokenizer.json")
	if err != nil {
		return nil, fmt.Errorf("failed to get cache path for model %s: %w", model, err)
	}
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load pretrained tokenizer for model %s (from %s): %w", model, path, err)
	}
	return &HuggingFace{tk: tk, logger: logger}, nil
}

// Summary is the token total of a document and its files.
type Summary struct {
	Total   int
	PerFile map[string]int
}

// Count sums tokens per named text. texts maps a name, usually a relative
// path, to its content.
func Count(c Counter, texts map[string]string) Summary {
	s := Summary{PerFile: make(map[string]int, len(texts))}
	for name, text := range texts {
		n := c.CountTokens(text)
		s.PerFile[name] = n
		s.Total += n
	}
	return s
}
