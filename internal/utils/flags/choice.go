package flags

import (
	"fmt"
	"strings"
)

const (
	choicePlaceholderTemplate      = "<%s>"
	choiceSeparatorLiteral         = "|"
	choiceUsageTemplate            = "`%s` %s"
	unsupportedChoiceErrorTemplate = "unsupported value %q for --%s (expected one of %s)"
)

// UnsupportedChoiceError reports a flag value outside the accepted set.
type UnsupportedChoiceError struct {
	FlagName string
	Value    string
	Choices  []string
}

// Error describes the rejected value.
func (choiceError UnsupportedChoiceError) Error() string {
	return fmt.Sprintf(unsupportedChoiceErrorTemplate, choiceError.Value, choiceError.FlagName, strings.Join(choiceError.Choices, choiceSeparatorLiteral))
}

// FormatChoiceUsage renders usage text listing the choices with the default upper-cased.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	normalizedDefault := normalizeChoice(defaultChoice)
	displayedChoices := make([]string, 0, len(choices))
	for _, choice := range uniqueChoices(choices) {
		if choice == normalizedDefault {
			choice = strings.ToUpper(choice)
		}
		displayedChoices = append(displayedChoices, choice)
	}

	placeholder := fmt.Sprintf(choicePlaceholderTemplate, strings.Join(displayedChoices, choiceSeparatorLiteral))
	if len(strings.TrimSpace(description)) == 0 {
		return "`" + placeholder + "`"
	}
	return fmt.Sprintf(choiceUsageTemplate, placeholder, description)
}

// ParseChoice returns the normalized value when it matches one of choices.
func ParseChoice(flagName string, value string, choices []string) (string, error) {
	normalizedValue := normalizeChoice(value)
	for _, choice := range uniqueChoices(choices) {
		if choice == normalizedValue {
			return choice, nil
		}
	}
	return "", UnsupportedChoiceError{FlagName: flagName, Value: value, Choices: uniqueChoices(choices)}
}

func uniqueChoices(choices []string) []string {
	unique := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		normalizedChoice := normalizeChoice(choice)
		if len(normalizedChoice) == 0 {
			continue
		}
		if _, exists := seen[normalizedChoice]; exists {
			continue
		}
		seen[normalizedChoice] = struct{}{}
		unique = append(unique, normalizedChoice)
	}
	return unique
}

func normalizeChoice(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
