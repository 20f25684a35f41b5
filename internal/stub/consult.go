package stub

import (
	"fmt"
	"strings"

	"cardchat/internal/gateway"
)

// Difficulty is the triage level that decides which specialists weigh in
type Difficulty string

const (
	DifficultyBasic        Difficulty = "Basic"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

var (
	advancedSigns     = []string{"bleeding", "ulcer", "mole", "growing", "lump", "melanoma"}
	intermediateSigns = []string{"spreading", "weeks", "months", "recurring", "blister", "infection"}
)

// Triage picks a difficulty from warning signs in the description
func Triage(input string) Difficulty {
	lower := strings.ToLower(input)
	for _, s := range advancedSigns {
		if strings.Contains(lower, s) {
			return DifficultyAdvanced
		}
	}
	for _, s := range intermediateSigns {
		if strings.Contains(lower, s) {
			return DifficultyIntermediate
		}
	}
	return DifficultyBasic
}

type consultation struct {
	items        []Item
	diagnosis    string
	treatment    string
	prescription string
}

// consult walks the specialist chain: intake, medical, then surgical for
// Intermediate and Advanced, dermatopathology for Advanced, and the
// pharmacist last
func consult(input string, d Difficulty) consultation {
	var c consultation
	add := func(content string) {
		c.items = append(c.items, Item{Content: content, Sender: gateway.SenderAgent, Type: Classify(content)})
	}

	add(fmt.Sprintf("**Intake summary**\n\nReported concern: %q. Triage level: %s.", input, d))

	c.diagnosis = "Irritant or allergic contact dermatitis"
	c.treatment = "Avoid the suspected trigger, emollients twice daily"
	add("Medical Dermatologist Assessment:\n" +
		"- Likely " + strings.ToLower(c.diagnosis) + "\n" +
		"- Differential: eczema, fungal infection\n" +
		"- Patch testing if it recurs")

	if d != DifficultyBasic {
		c.treatment += "; review for excision if the lesion persists"
		add("Surgical Dermatologist Assessment:\n" +
			"- No urgent surgical need\n" +
			"- Consider punch biopsy if no response in 4 weeks")
	}
	if d == DifficultyAdvanced {
		c.diagnosis += " (biopsy pending)"
		add("Dermatopathologist Assessment:\n" +
			"- Histology recommended to exclude malignancy\n" +
			"- Send specimen in formalin, request PAS stain")
	}

	c.prescription = "Hydrocortisone 1% cream twice daily for 7 days"
	add("Pharmacist's Recommendations:\n" +
		"- " + c.prescription + "\n" +
		"- Fragrance-free moisturizer\n" +
		"- Oral antihistamine at night if itchy")

	return c
}
