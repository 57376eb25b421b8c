// Package refdata holds the fixed reference data the caller-LLM needs to
// produce a valid batch: the 1-10 calibration anchors and the batch JSON
// schema, rendered to the BatchPreparer's stdout stream (§4.6).
package refdata

import (
	"strings"
	"text/template"
)

// ToneDimension is one of the four calibration scales rendered to the
// caller-LLM before every batch (§4.6 item 1).
type ToneDimension struct {
	Name        string
	Description string
	Anchors     []Anchor
}

// Anchor pins one point on a 1-10 scale to a concrete exemplar phrase.
type Anchor struct {
	Score     int
	Exemplar  string
}

// CalibrationAnchors is the fixed 1-10 scale description for every tone
// dimension, with anchor exemplars, in the order BatchPreparer renders
// them (§4.6).
var CalibrationAnchors = []ToneDimension{
	{
		Name:        "formality",
		Description: "How formal vs. casual the writing reads.",
		Anchors: []Anchor{
			{1, `"hey, quick q - you around later?"`},
			{3, `"Hi! Just checking in on this, no rush."`},
			{5, `"Hi Sam, following up on the notes below."`},
			{7, `"Hello Sam, I wanted to follow up regarding the items below."`},
			{10, `"Dear Mr. Lee, I am writing to follow up on the matter referenced below."`},
		},
	},
	{
		Name:        "warmth",
		Description: "How much interpersonal warmth the writing conveys.",
		Anchors: []Anchor{
			{1, `"Send the file."`},
			{3, `"Please send the file when you can."`},
			{5, `"Thanks for this - could you send the file when you get a chance?"`},
			{7, `"Really appreciate you pulling this together! Could you send the file over?"`},
			{10, `"You're a lifesaver, thank you so much for jumping on this - whenever you can send it over works great!"`},
		},
	},
	{
		Name:        "authority",
		Description: "How much the writing asserts expertise or decisiveness vs. hedges.",
		Anchors: []Anchor{
			{1, `"I might be wrong, but maybe we could possibly consider trying this?"`},
			{3, `"I think this could work, though I'm not totally sure."`},
			{5, `"I'd recommend we go with option B."`},
			{7, `"We should go with option B; it addresses the latency issue directly."`},
			{10, `"We are going with option B. It is the only approach that addresses the latency issue."`},
		},
	},
	{
		Name:        "directness",
		Description: "How much the writing gets to the point vs. builds up to it.",
		Anchors: []Anchor{
			{1, `"So I was thinking about this for a while, and there are a few things worth considering, and one of them is maybe we push the date."`},
			{3, `"There are a couple of factors here, but I think we may want to push the date."`},
			{5, `"I think we should push the date by a week."`},
			{7, `"Push the date by a week."`},
			{10, `"Push the date. One week."`},
		},
	},
}

const calibrationTemplate = `# Calibration anchors (1-10 scale per dimension)

{{range .}}## {{.Name}}
{{.Description}}
{{range .Anchors}}- {{.Score}}: {{.Exemplar}}
{{end}}
{{end}}`

// RenderCalibration renders CalibrationAnchors as the prose block the
// BatchPreparer writes before the schema and cluster members (§4.6 item 1).
func RenderCalibration() (string, error) {
	tmpl, err := template.New("calibration").Parse(calibrationTemplate)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, CalibrationAnchors); err != nil {
		return "", err
	}
	return b.String(), nil
}
