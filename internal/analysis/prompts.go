package analysis

import "fmt"

const cropPrompt = `Analyze this plant material and identify its specific crop type in one word.
First check if it's one of these crops: maize, tomato, cassava, cashew.
If not, identify the specific crop type (like orange, apple, wheat, rice, etc).
Do not respond with 'other' - always identify the specific crop type.
Focus on identifying the plant species regardless of what part is shown in the image.
Respond with just ONE WORD for the crop type.`

const diagnosisPromptFormat = `This is a %s plant. Carefully analyze this plant image and provide the following information:
1. Health status: choose ONLY one of these two values: "healthy" or "diseased".
2. If diseased, the specific disease name using accepted plant pathology terminology.
3. Treatment recommendations: 3-5 specific, practical ways to treat or manage the disease.
   If healthy, 2-3 general care tips for maintaining plant health.

Respond with only a JSON object with this exact schema:
{"health_status": "healthy or diseased", "disease_name": "disease name or none if healthy", "treatment": ["recommendation", "..."]}

If you cannot produce JSON, use exactly this format instead:
health_status: [healthy or diseased]
disease_name: [disease name or 'none' if healthy]
treatment: [numbered list of recommendations]

Be very careful to accurately determine if the plant shows actual disease symptoms.
For citrus plants like orange or lemon, check for citrus canker, greening and black spot.`

// CropPrompt returns the instruction asking for a one-word crop name.
func CropPrompt() string { return cropPrompt }

// DiagnosisPrompt returns the instruction asking for the health verdict of a
// plant already identified as crop.
func DiagnosisPrompt(crop string) string {
	return fmt.Sprintf(diagnosisPromptFormat, crop)
}
