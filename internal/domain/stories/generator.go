package stories

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"storyforge-app/internal/domain/billing"
)

var (
	ErrMissingParams       = errors.New("stories: boss_name and story_title are required")
	ErrNotConfigured       = errors.New("stories: completion service not configured")
	ErrNoAccess            = errors.New("stories: an active subscription or credits are required")
	ErrMalformedCompletion = errors.New("stories: completion response has no content")
)

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Completion struct {
	Content string
	Usage   *Usage
}

// Completer runs one chat completion.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (Completion, error)
}

// Access is the slice of billing the generator needs.
type Access interface {
	Entitlement(ctx context.Context, userID uint) (billing.Entitlement, error)
	ConsumeCredit(ctx context.Context, userID uint) error
}

type Result struct {
	Content     string `json:"content"`
	Usage       *Usage `json:"usage,omitempty"`
	CreditsLeft *int   `json:"credits_left,omitempty"`
}

type Generator struct {
	completer Completer
	access    Access
}

func NewGenerator(completer Completer, access Access) *Generator {
	return &Generator{completer: completer, access: access}
}

// Generate writes one story for userID. Users without an entitling
// subscription pay one credit, taken only after a usable completion.
func (g *Generator) Generate(ctx context.Context, userID uint, req Request) (Result, error) {
	req.BossName = strings.TrimSpace(req.BossName)
	req.StoryTitle = strings.TrimSpace(req.StoryTitle)
	if req.BossName == "" || req.StoryTitle == "" {
		return Result{}, ErrMissingParams
	}
	if g.completer == nil {
		return Result{}, ErrNotConfigured
	}

	ent, err := g.access.Entitlement(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if !ent.CanGenerate() {
		return Result{}, ErrNoAccess
	}

	completion, err := g.completer.Complete(ctx, BuildPrompt(req))
	if err != nil {
		return Result{}, fmt.Errorf("stories: completion: %w", err)
	}
	content := CleanContent(completion.Content)
	if content == "" {
		return Result{}, ErrMalformedCompletion
	}

	res := Result{Content: content, Usage: completion.Usage}
	if !ent.HasSubscription {
		if err := g.access.ConsumeCredit(ctx, userID); err != nil {
			if errors.Is(err, billing.ErrNoCredits) {
				return Result{}, ErrNoAccess
			}
			return Result{}, err
		}
		left := ent.Credits - 1
		res.CreditsLeft = &left
		log.Printf("📝 story generated for user %d, %d credits left", userID, left)
	}
	return res, nil
}
