package brain

import (
	"fmt"
	"strings"

	"github.com/engramhq/engram/internal/memory"
	"github.com/engramhq/engram/internal/profile"
)

// noMemoriesMarker is the literal placed in the prompt when nothing matched.
const noMemoriesMarker = "No relevant memories found."

// buildSystemPrompt assembles the grounding prompt from the profile and the
// retrieved memories. Tone is re-checked against the closed enum here so a
// corrupted profile value can never be interpolated into the prompt.
func buildSystemPrompt(prof *profile.Profile, matches []memory.Match) string {
	tone := prof.Tone
	if !tone.Valid() {
		tone = profile.ToneFriendly
	}
	pace := prof.Pace
	if !pace.Valid() {
		pace = profile.PaceMedium
	}
	userType := prof.UserType
	if !userType.Valid() {
		userType = profile.UserGeneral
	}

	name := strings.TrimSpace(prof.DisplayName)
	if name == "" {
		name = "User"
	}

	context := noMemoriesMarker
	if len(matches) > 0 {
		parts := make([]string, 0, len(matches))
		for _, m := range matches {
			parts = append(parts, fmt.Sprintf("%s: %s", m.Title, m.Content))
		}
		context = strings.Join(parts, "\n\n")
	}

	var sb strings.Builder
	sb.WriteString("You are a personalized AI assistant that acts as a digital twin of the user.\n\n")
	sb.WriteString("User Profile:\n")
	fmt.Fprintf(&sb, "- Name: %s\n", name)
	fmt.Fprintf(&sb, "- Communication Tone: %s\n", tone)
	fmt.Fprintf(&sb, "- Learning Pace: %s\n", pace)
	fmt.Fprintf(&sb, "- User Type: %s\n", userType)
	sb.WriteString("\nRelevant Context from User's Memories:\n")
	sb.WriteString(context)
	sb.WriteString("\n\nInstructions:\n")
	fmt.Fprintf(&sb, "- Respond in a %s tone\n", tone)
	sb.WriteString("- Reference the user's stored memories when relevant\n")
	sb.WriteString("- Be helpful, concise, and personalized to their learning style\n")
	sb.WriteString("- If you use information from their memories, acknowledge it naturally\n")
	return sb.String()
}
