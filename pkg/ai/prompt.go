package ai

import "strings"

// DefaultImageMIME is assumed for images submitted without a content type.
const DefaultImageMIME = "image/jpeg"

const evaluationPrompt = "You are an educational content quality reviewer. " +
	"You will be given either textual content or an image of textbook/reference book pages. " +
	"If an image is provided, read the text from the image first, then evaluate it.\n\n" +
	"Based only on the provided material (it may be partial), evaluate the content on:\n\n" +
	"1. Accuracy: a numerical score from 0 to 100 for factual correctness and alignment with " +
	"standard knowledge in the field, and a short explanation.\n" +
	"2. Readability: a numerical score from 0 to 100 for clarity, structure and ease of " +
	"understanding, and a short explanation.\n" +
	"3. Consistency: a numerical score from 0 to 100 for internal consistency (terminology, " +
	"notation, tone, logical flow), and a short explanation.\n" +
	"4. Overall Rating: one overall quality rating on a 0 to 5 scale (one decimal place allowed, e.g. 4.2).\n\n" +
	"Return your answer strictly using the provided JSON schema, filling:\n" +
	"- accuracy_score (0-100), accuracy (text explanation)\n" +
	"- readability_score (0-100), readability (text explanation)\n" +
	"- consistency_score (0-100), consistency (text explanation)\n" +
	"- overall_rating (0-5, number)\n" +
	"- summary (2-4 sentence summary).\n"

// EvaluationPrompt returns the fixed instruction sent ahead of the material.
func EvaluationPrompt() string {
	return evaluationPrompt
}

// BuildRequest assembles the prompt, the text block and the image block, in
// that order. Blank text is omitted; a nil image is omitted.
func BuildRequest(text string, image []byte, imageMIME string) (EvaluationRequest, error) {
	hasText := strings.TrimSpace(text) != ""
	if !hasText && image == nil {
		return EvaluationRequest{}, ErrNoContent
	}

	parts := []Part{{Text: evaluationPrompt}}
	if hasText {
		parts = append(parts, Part{Text: text})
	}
	if image != nil {
		if strings.TrimSpace(imageMIME) == "" {
			imageMIME = DefaultImageMIME
		}
		parts = append(parts, Part{Image: &ImagePart{Data: image, MIMEType: imageMIME}})
	}

	return EvaluationRequest{
		Parts:       parts,
		Schema:      EvaluationSchemaJSON(),
		Temperature: 0,
	}, nil
}
