package recovery

// FallbackPayload is the stage-keyed substitute produced when a full result
// cannot be obtained. Each variant carries an explicit schema instead of an
// untyped record; PayloadStage identifies the variant.
type FallbackPayload interface {
	PayloadStage() Stage
}

// ValidationFallback substitutes a creative default prompt when the input
// was empty or rejected by validation.
type ValidationFallback struct {
	Prompt string `json:"prompt"`
}

// PayloadStage implements FallbackPayload.
func (ValidationFallback) PayloadStage() Stage { return StageValidation }

// EnhancementFallback instructs the caller to use the original prompt
// without enhancement.
type EnhancementFallback struct {
	UseOriginal bool   `json:"useOriginal"`
	Note        string `json:"note"`
}

// PayloadStage implements FallbackPayload.
func (EnhancementFallback) PayloadStage() Stage { return StageEnhancement }

// StructuringFallback instructs the caller to apply basic structuring rules
// locally instead of the failed structured pass.
type StructuringFallback struct {
	BasicStructuring bool     `json:"basicStructuring"`
	Sections         []string `json:"sections"`
}

// PayloadStage implements FallbackPayload.
func (StructuringFallback) PayloadStage() Stage { return StageStructuring }

// GenericFallback marks a fallback for an unrecognized stage.
type GenericFallback struct {
	Marker string `json:"marker"`
}

// PayloadStage implements FallbackPayload.
func (f GenericFallback) PayloadStage() Stage { return Stage(f.Marker) }

// DegradedPayload is the reduced-functionality substitute used by graceful
// degradation; deliberately simpler than the full fallback variants.
type DegradedPayload struct {
	Stage   Stage  `json:"stage"`
	Partial bool   `json:"partial"`
	Note    string `json:"note"`
}

// PayloadStage implements FallbackPayload.
func (p DegradedPayload) PayloadStage() Stage { return p.Stage }

// fallbackFor builds the full substitute payload for a stage.
func fallbackFor(stage Stage) FallbackPayload {
	switch stage {
	case StageValidation:
		return ValidationFallback{
			Prompt: "A serene landscape with soft natural light",
		}
	case StageEnhancement:
		return EnhancementFallback{
			UseOriginal: true,
			Note:        "enhancement skipped, original prompt used",
		}
	case StageStructuring:
		return StructuringFallback{
			BasicStructuring: true,
			Sections:         []string{"subject", "style", "composition"},
		}
	case StageGeneration:
		return GenericFallback{Marker: string(StageGeneration)}
	default:
		return GenericFallback{Marker: string(stage)}
	}
}

// degradedFor builds the partial-functionality payload for a stage.
func degradedFor(stage Stage) FallbackPayload {
	return DegradedPayload{
		Stage:   stage,
		Partial: true,
		Note:    "processing continued with reduced functionality",
	}
}
