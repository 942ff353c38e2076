package functions

import "google.golang.org/genai"

// ControlSystemName is the tool name the model calls.
const ControlSystemName = "controlSystem"

// CalibrationResult is the reply sent for every suit command.
const CalibrationResult = "Calibration complete, Sir."

// ControlSystemFunctionDeclaration returns the function declaration for Gemini
func ControlSystemFunctionDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        ControlSystemName,
		Description: "Control Stark Industries suit systems.",
		Parameters: &genai.Schema{
			Type:        genai.TypeObject,
			Description: "Control Stark Industries suit systems.",
			Properties: map[string]*genai.Schema{
				"system": {
					Type:        genai.TypeString,
					Description: `The system to control (e.g., "stabilizers", "thrusters", "arc_reactor", "optics")`,
				},
				"action": {
					Type:        genai.TypeString,
					Description: `The action to perform (e.g., "optimize", "redirect_power", "engage", "calibrate")`,
				},
				"value": {
					Type:        genai.TypeNumber,
					Description: "Intensity or level (0-100)",
				},
			},
			Required: []string{"system", "action"},
		},
	}
}

// Tools returns the tool set offered to the model.
func Tools() []*genai.Tool {
	return []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				ControlSystemFunctionDeclaration(),
			},
		},
	}
}

// ControlSystem simulates a suit command. No system is actually touched.
func ControlSystem(args map[string]any) map[string]any {
	return map[string]any{"result": CalibrationResult}
}

// Execute answers a tool invocation by name. Unknown tools get the same
// acknowledgement so the model never stalls waiting for a reply.
func Execute(name string, args map[string]any) map[string]any {
	switch name {
	case ControlSystemName:
		return ControlSystem(args)
	default:
		return map[string]any{"result": CalibrationResult}
	}
}
