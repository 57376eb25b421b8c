package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/orchestrator"
)

// PersonaPromptFile is the final portable markdown artifact: a mechanical
// templating step over the already-computed persona registry and LinkedIn
// persona (§1, "Deliberately out of scope: the final writing assistant
// markdown artifact generator"). The pipeline proper stops at
// persona_registry.json / linkedin_persona.json; this stage only exists so
// the workflow state machine has somewhere to go for its final
// generation -> complete transition (§4.10 DAG).
const PersonaPromptFile = "persona_prompt.md"

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Render the final portable persona prompt from the persona registry and LinkedIn persona",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := orchestrator.New(cfg.Data.Dir)
		if err := r.CheckStage("generate"); err != nil {
			return err
		}

		registry, err := loadPersonaRegistry(cfg.Data.Dir)
		if err != nil {
			return fmt.Errorf("load persona registry: %w", err)
		}

		var linkedinPersona *model.LinkedInPersona
		var li model.LinkedInPersona
		if err := readJSON(filepath.Join(cfg.Data.Dir, orchestrator.LinkedInPersonaFile), &li); err == nil {
			linkedinPersona = &li
		}

		doc, err := renderPersonaPrompt(registry, linkedinPersona)
		if err != nil {
			return fmt.Errorf("render persona prompt: %w", err)
		}

		if err := writeTextAtomic(filepath.Join(cfg.Data.Dir, PersonaPromptFile), doc); err != nil {
			return fmt.Errorf("write persona prompt: %w", err)
		}

		if _, err := r.Store().Transition(model.PhaseGeneration, "generate"); err != nil {
			return fmt.Errorf("advance workflow: %w", err)
		}
		if _, err := r.Store().Transition(model.PhaseComplete, "generate"); err != nil {
			return fmt.Errorf("advance workflow: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "rendered %s from %d email personas and the LinkedIn persona\n",
			PersonaPromptFile, len(registry.Order))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

// promptDoc is the template's view of the data the two upstream stages
// produced, flattened for rendering.
type promptDoc struct {
	EmailPersonas []*model.Persona
	LinkedIn      *model.LinkedInPersona
}

const personaPromptTemplate = `# Writing voice profile

This profile was mined from your own authored messages. Paste it into any
LLM's system prompt to have it write in your voice.

{{range .EmailPersonas}}## Email persona: {{.Name}}

Tone: formality {{.ToneVector.Formality}}/10, warmth {{.ToneVector.Warmth}}/10, authority {{.ToneVector.Authority}}/10, directness {{.ToneVector.Directness}}/10.
Typical greeting: {{.Structural.TypicalGreeting}}
Typical closing: {{.Structural.TypicalClosing}}
Sample count: {{.SampleCount}} (confidence {{printf "%.2f" .Confidence}})

{{end}}{{with .LinkedIn}}## LinkedIn persona

Tone: formality {{.ToneVector.Formality}}/10, warmth {{.ToneVector.Warmth}}/10, authority {{.ToneVector.Authority}}/10, directness {{.ToneVector.Directness}}/10.
Hashtag placement: {{.Platform.HashtagPlacement}}
Dominant hook style: {{.Platform.DominantHookStyle}}
Sample count: {{.SampleSize}} (confidence {{printf "%.2f" .Confidence}})
{{if .Guardrails}}
Guardrails:
{{range .Guardrails}}- {{.}}
{{end}}{{end}}{{end}}`

// renderPersonaPrompt executes personaPromptTemplate over registry and the
// optional LinkedIn persona, in registry.Order (§3: Order is the stable,
// insertion-ordered persona listing).
func renderPersonaPrompt(registry *model.PersonaRegistry, linkedinPersona *model.LinkedInPersona) (string, error) {
	doc := promptDoc{LinkedIn: linkedinPersona}
	for _, name := range registry.Order {
		doc.EmailPersonas = append(doc.EmailPersonas, registry.Personas[name])
	}

	tmpl, err := template.New("persona_prompt").Parse(personaPromptTemplate)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, doc); err != nil {
		return "", err
	}
	return b.String(), nil
}
