package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ragtutor/internal/domain"
	"ragtutor/internal/logger"
	"ragtutor/internal/port"
)

// notConfiguredContent is shown in place of transformed content when
// no generation credential is present. It is never cached.
const notConfiguredContent = "⚠️ Content transformation is not configured. Set ANTHROPIC_API_KEY to enable it."

// levelGuidelines maps a reading level to the instructions given to
// the generator. Unknown levels fall back to beginner.
var levelGuidelines = map[string]string{
	"beginner":     "Use simple language, add many examples, explain basic concepts, avoid jargon",
	"intermediate": "Balance theory and practice, some technical terms ok, add coding examples",
	"advanced":     "Technical depth, advanced concepts, research papers, optimization techniques",
}

// TransformUseCase produces cached AI-adapted variants of chapter
// content. Cache hits skip generation entirely.
type TransformUseCase struct {
	cache             port.TransformCache
	generator         port.Generator
	personalizeTokens int
	translateTokens   int
	defaultLanguage   string
}

// NewTransformUseCase creates a new transform use case.
func NewTransformUseCase(
	cache port.TransformCache,
	generator port.Generator,
	personalizeTokens int,
	translateTokens int,
	defaultLanguage string,
) *TransformUseCase {
	return &TransformUseCase{
		cache:             cache,
		generator:         generator,
		personalizeTokens: personalizeTokens,
		translateTokens:   translateTokens,
		defaultLanguage:   defaultLanguage,
	}
}

// Personalize rewrites content for the given reading level. A cached
// variant is returned as-is unless forceRefresh is set.
func (u *TransformUseCase) Personalize(ctx context.Context, documentID, content, level string, forceRefresh bool) (domain.TransformResult, error) {
	level = normalizeLevel(level)
	key := domain.TransformKey{
		DocumentID: documentID,
		Kind:       domain.TransformPersonalize,
		Parameter:  level,
	}

	system := fmt.Sprintf(`You are an expert educator adapting textbook content for different skill levels.

Adapt the content for a %s level reader. %s.

Preserve the structure and headings of the original. Return only the adapted content.`, level, levelGuidelines[level])

	return u.transform(ctx, key, content, system, u.personalizeTokens, forceRefresh)
}

// Translate renders content in the target language. An empty language
// selects the configured default.
func (u *TransformUseCase) Translate(ctx context.Context, documentID, content, language string, forceRefresh bool) (domain.TransformResult, error) {
	language = strings.TrimSpace(language)
	if language == "" {
		language = u.defaultLanguage
	}
	key := domain.TransformKey{
		DocumentID: documentID,
		Kind:       domain.TransformTranslate,
		Parameter:  language,
	}

	system := fmt.Sprintf(`You are an expert translator for educational content.

Translate the content to %s. Keep technical terms in English where a translation would obscure the meaning, and keep code blocks, markdown formatting and headings intact.

Return only the translated content.`, language)

	return u.transform(ctx, key, content, system, u.translateTokens, forceRefresh)
}

func (u *TransformUseCase) transform(ctx context.Context, key domain.TransformKey, content, system string, maxTokens int, forceRefresh bool) (domain.TransformResult, error) {
	if strings.TrimSpace(key.DocumentID) == "" {
		return domain.TransformResult{}, fmt.Errorf("%w: document id is empty", domain.ErrValidation)
	}
	if strings.TrimSpace(content) == "" {
		return domain.TransformResult{}, fmt.Errorf("%w: content is empty", domain.ErrValidation)
	}

	if !forceRefresh {
		entry, err := u.cache.Get(ctx, key)
		switch {
		case err == nil:
			logger.Debug("cache hit for %s/%s/%s", key.DocumentID, key.Kind, key.Parameter)
			return domain.TransformResult{Content: entry.Value, Cached: true}, nil
		case errors.Is(err, domain.ErrNotFound):
			// fall through to generation
		default:
			return domain.TransformResult{}, fmt.Errorf("failed to read cache: %w", err)
		}
	}

	result, err := u.generator.Generate(ctx, system, content, maxTokens)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			// Placeholder content is deliberately not cached: a later
			// run with a credential must regenerate.
			return domain.TransformResult{Content: notConfiguredContent}, nil
		}
		return domain.TransformResult{}, err
	}

	if err := u.cache.Put(ctx, key, result.Text); err != nil {
		return domain.TransformResult{}, fmt.Errorf("failed to cache transform: %w", err)
	}

	return domain.TransformResult{
		Content:    result.Text,
		TokensUsed: result.InputTokens + result.OutputTokens,
	}, nil
}

func normalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	if _, ok := levelGuidelines[level]; !ok {
		return "beginner"
	}
	return level
}
