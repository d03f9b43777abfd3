package advice

import (
	"fmt"

	"github.com/jun/fitadvice/internal/model"
)

// DefaultAdviceCount is the number of recommendations requested per prompt.
const DefaultAdviceCount = 5

const promptTemplate = "The following is a user's health data collected from Fitbit. " +
	"Judge it as a whole from the sleep, exercise and heart rate information, " +
	"and list %d concrete pieces of advice for improving their daily life.\n" +
	"```json\n%s\n```\n"

// BuildPrompt embeds the canonical JSON form of record in the advice template.
func BuildPrompt(record model.HealthRecord, count int) (string, error) {
	if count <= 0 {
		count = DefaultAdviceCount
	}
	data, err := record.MarshalCanonical()
	if err != nil {
		return "", fmt.Errorf("failed to serialize health record: %w", err)
	}
	return fmt.Sprintf(promptTemplate, count, data), nil
}
