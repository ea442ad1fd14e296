package analyze

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/interview-cli/internal/config"
	"github.com/sells-group/interview-cli/internal/model"
)

// ErrMissingCredential is returned by the extractor under the "fail" policy
// when no completion credential is configured.
var ErrMissingCredential = eris.Wrap(config.ErrMissingCredential, "analyze: completion service")

const extractSystemPrompt = `You are a rigorous data analyst. Your job is to extract EXACT VERBATIM QUOTES from the interview transcript.

RULES:
- NO SUMMARIZATION. Extract the exact words spoken by the interviewee.
- NO TRANSLATION. Keep quotes in the language the interviewee spoke.
- Map the quotes to Question 1, 2, 3 and 4, and to the open Question 5 if one was asked.
- If the interviewee never addressed a question, return an empty string for it.
- Set is_valid to true if the interviewee took the interview seriously and answered the questions, false if the transcript is spam, empty or nonsense.

OUTPUT JSON FORMAT:
{
  "is_valid": boolean,
  "reason": "Short explanation in English",
  "answers": {
    "q1": "Exact quote from the interviewee",
    "q2": "Exact quote from the interviewee",
    "q3": "Exact quote from the interviewee",
    "q4": "Exact quote from the interviewee",
    "q5": "Exact quote from the interviewee (if any)"
  }
}`

// Reason recorded when the completion reply cannot be read.
const unparseableReason = "Completion reply could not be parsed."

// ExtractorConfig configures the Extractor.
type ExtractorConfig struct {
	// OnMissingCredential is config.OnMissingCredentialSkip or
	// config.OnMissingCredentialFail.
	OnMissingCredential string
	MaxTokens           int
}

// Extraction is the outcome of answer extraction.
type Extraction struct {
	Answers model.Answers
	IsValid bool
	// Skipped is set when no credential was configured and the skip policy
	// applied.
	Skipped bool
}

// Extractor pulls verbatim answers and a validity judgment out of a transcript.
type Extractor struct {
	llm Completer
	cfg ExtractorConfig
}

// NewExtractor creates an Extractor. A nil llm means no credential is
// configured.
func NewExtractor(llm Completer, cfg ExtractorConfig) *Extractor {
	if cfg.OnMissingCredential == "" {
		cfg.OnMissingCredential = config.OnMissingCredentialSkip
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	return &Extractor{llm: llm, cfg: cfg}
}

// Extract sends transcript to the completion service in a single attempt.
// Reply fields are type-checked individually; anything missing or malformed
// becomes "" or false.
func (e *Extractor) Extract(ctx context.Context, transcript string) (*Extraction, error) {
	if e.llm == nil {
		if e.cfg.OnMissingCredential == config.OnMissingCredentialFail {
			return nil, ErrMissingCredential
		}
		zap.L().Warn("analyze: no completion credential, skipping answer extraction")
		return &Extraction{IsValid: true, Skipped: true}, nil
	}

	reply, err := e.llm.Complete(ctx, Request{
		System:    extractSystemPrompt,
		User:      transcript,
		MaxTokens: e.cfg.MaxTokens,
		JSON:      true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "analyze: extract answers")
	}

	out := parseExtraction(reply)
	a := out.Answers
	zap.L().Info("analyze: answers extracted",
		zap.Bool("is_valid", out.IsValid),
		zap.Int("q1_len", len(a.Question1)),
		zap.Int("q2_len", len(a.Question2)),
		zap.Int("q3_len", len(a.Question3)),
		zap.Int("q4_len", len(a.Question4)),
		zap.Int("q5_len", len(a.Question5)),
	)
	return out, nil
}

func parseExtraction(reply string) *Extraction {
	obj, err := decodeObject(reply)
	if err != nil {
		zap.L().Warn("analyze: unparseable extraction reply",
			zap.Int("reply_len", len(reply)),
			zap.Error(err),
		)
		return &Extraction{Answers: model.Answers{Reason: unparseableReason}}
	}

	out := &Extraction{IsValid: truthy(obj["is_valid"])}
	out.Answers.Reason = stringField(obj, "reason")

	// Answers normally sit under "answers"; fall back to the top level.
	src, ok := obj["answers"].(map[string]any)
	if !ok {
		src = obj
	}
	for n := 1; n <= 5; n++ {
		out.Answers.SetIndex(n, answerFor(src, n))
	}
	return out
}

// answerFor accepts q1, question_1 or "1" as the key for question n.
func answerFor(src map[string]any, n int) string {
	idx := strconv.Itoa(n)
	for _, key := range []string{"q" + idx, "question_" + idx, idx} {
		if s, ok := src[key].(string); ok {
			return s
		}
	}
	return ""
}
