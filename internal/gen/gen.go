// internal/gen/gen.go
//
// Duplicate-avoiding puzzle generation.
// Responsibilities:
//   - Load the user's recent words once per call and use them as an
//     exclusion set.
//   - Build a prompt that forbids every excluded word and demands a strict
//     two-field JSON payload.
//   - Strip code fences, parse and validate the candidate.
//   - Retry (bounded) when the model repeats a recent word; fail hard on
//     malformed output or transport errors.
//   - Serialize concurrent generation per user so two in-flight calls
//     cannot both accept the other's word.

package gen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultHistoryLimit bounds the exclusion set to the most recent words.
	DefaultHistoryLimit = 50
	// DefaultMaxAttempts bounds the duplicate-retry loop.
	DefaultMaxAttempts = 3

	generationTemperature = 0.7
)

// ErrGenerationFailed covers any transport, HTTP-status, or contract
// failure from the external text service. Handlers map it to a single
// user-facing message; detail stays in the logs.
var ErrGenerationFailed = errors.New("puzzle generation failed")

// ErrBadPuzzleFormat marks output that is not the expected {word, clue}
// JSON payload. It wraps ErrGenerationFailed.
var ErrBadPuzzleFormat = fmt.Errorf("%w: malformed generator output", ErrGenerationFailed)

// ErrRetriesExhausted is returned when every attempt produced a word the
// user has already seen. It wraps ErrGenerationFailed.
var ErrRetriesExhausted = fmt.Errorf("%w: duplicate word on every attempt", ErrGenerationFailed)

// HistoryStore supplies the most recent target words for a user,
// newest first.
type HistoryStore interface {
	RecentWords(ctx context.Context, username string, limit int) ([]string, error)
}

// Puzzle is an accepted word/clue pair for one game round.
type Puzzle struct {
	Word string
	Clue string
}

// candidate is one raw generator attempt, prior to validation.
type candidate struct {
	Word string `json:"word"`
	Clue string `json:"clue"`
}

// Generator negotiates between a user's word history and the external
// text service to produce a fresh puzzle.
type Generator struct {
	ai           TextGenerator
	history      HistoryStore
	historyLimit int
	maxAttempts  int

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// New constructs a Generator. Non-positive limits select the defaults.
func New(ai TextGenerator, history HistoryStore, historyLimit, maxAttempts int) *Generator {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{
		ai:           ai,
		history:      history,
		historyLimit: historyLimit,
		maxAttempts:  maxAttempts,
		userLocks:    make(map[string]*sync.Mutex),
	}
}

// Generate produces one puzzle whose word is guaranteed absent from the
// user's recent history as loaded at the start of the call. History is
// fetched once; retries rebuild the prompt from the same exclusion set.
func (g *Generator) Generate(ctx context.Context, username string) (Puzzle, error) {
	if strings.TrimSpace(username) == "" {
		return Puzzle{}, fmt.Errorf("%w: empty username", ErrGenerationFailed)
	}

	unlock := g.lockUser(username)
	defer unlock()

	recent, err := g.history.RecentWords(ctx, username, g.historyLimit)
	if err != nil {
		return Puzzle{}, fmt.Errorf("%w: load history: %v", ErrGenerationFailed, err)
	}
	exclude := make(map[string]struct{}, len(recent))
	for _, w := range recent {
		exclude[w] = struct{}{}
	}

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		p, err := g.generateOnce(ctx, recent)
		if err != nil {
			return Puzzle{}, err
		}
		if _, dup := exclude[p.Word]; dup {
			log.Warn().
				Str("username", username).
				Str("word", p.Word).
				Int("attempt", attempt).
				Msg("generator repeated a recent word, retrying")
			continue
		}
		return p, nil
	}
	return Puzzle{}, ErrRetriesExhausted
}

// generateOnce performs a single prompt → completion → parse cycle.
func (g *Generator) generateOnce(ctx context.Context, recent []string) (Puzzle, error) {
	content, err := g.ai.Complete(ctx, buildMessages(recent), generationTemperature)
	if err != nil {
		return Puzzle{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	var c candidate
	if err := json.Unmarshal([]byte(stripFences(content)), &c); err != nil {
		return Puzzle{}, fmt.Errorf("%w: %v", ErrBadPuzzleFormat, err)
	}
	if c.Word == "" || c.Clue == "" {
		return Puzzle{}, fmt.Errorf("%w: missing word or clue", ErrBadPuzzleFormat)
	}
	return Puzzle{Word: c.Word, Clue: c.Clue}, nil
}

const systemPrompt = "你是一个百科猜词游戏的出题官。你需要生成一个词语和一段对应的描述。"

const userPromptFormat = `请生成一个新的猜词题目。
要求：
1. **词语要求**：必须是中文名词（2-6个字），涉及科技、生活、自然、运动等领域。
2. **去重要求**：绝对不能是以下已经出过的词：[%s]。如果生成了重复词，请重新思考一个完全不同的。
3. **描述要求**：写一段 150-250 字的描述，生动有趣，包含关键特征，但**绝对不能直接出现该词语本身**。
4. **输出格式**：严格只返回 JSON 格式，不要 Markdown 标记。格式如下：
   {"word": "生成的词语", "clue": "生成的描述文本"}`

// buildMessages renders the system and user prompts, embedding the
// exclusion list ("无" when the user has no history yet).
func buildMessages(recent []string) []Message {
	historyStr := "无"
	if len(recent) > 0 {
		historyStr = strings.Join(recent, "、")
	}
	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(userPromptFormat, historyStr)},
	}
}

// stripFences removes markdown code-fence markup the model sometimes
// wraps around the JSON payload.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// lockUser acquires the per-user generation mutex and returns its
// release func. Lock objects are never evicted; one mutex per username
// is cheap at this scale.
func (g *Generator) lockUser(username string) func() {
	g.mu.Lock()
	l, ok := g.userLocks[username]
	if !ok {
		l = &sync.Mutex{}
		g.userLocks[username] = l
	}
	g.mu.Unlock()
	l.Lock()
	return l.Unlock
}
