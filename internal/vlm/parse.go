package vlm

import (
	"fmt"
	"strings"
)

// StripCodeFences removes markdown code fences wrapping a model reply.
// Models frequently wrap JSON in ```json blocks despite being told not to.
func StripCodeFences(s string) string {
	cleaned := strings.TrimSpace(s)

	if strings.HasPrefix(cleaned, "```") {
		lines := strings.Split(cleaned, "\n")
		lines = lines[1:] // drop ```json or ```
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
			lines = lines[:len(lines)-1]
		}
		return strings.TrimSpace(strings.Join(lines, "\n"))
	}

	// Inline fenced block embedded in prose.
	if strings.Contains(cleaned, "```") {
		parts := strings.Split(cleaned, "```")
		if len(parts) >= 3 {
			inner := parts[1]
			if idx := strings.Index(inner, "\n"); idx != -1 {
				// Drop the language identifier line.
				inner = inner[idx+1:]
			}
			return strings.TrimSpace(inner)
		}
	}

	return cleaned
}

// ExtractJSONArray returns the first JSON array embedded in the reply,
// stripping code fences and surrounding prose.
func ExtractJSONArray(s string) (string, error) {
	cleaned := StripCodeFences(s)

	if strings.HasPrefix(cleaned, "[") && strings.HasSuffix(cleaned, "]") {
		return cleaned, nil
	}

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON array found in response")
	}
	return cleaned[start : end+1], nil
}

// ExtractJSONObject returns the first JSON object embedded in the reply.
func ExtractJSONObject(s string) (string, error) {
	cleaned := StripCodeFences(s)

	if strings.HasPrefix(cleaned, "{") && strings.HasSuffix(cleaned, "}") {
		return cleaned, nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return cleaned[start : end+1], nil
}
