package vitals

import "fmt"

// BloodPressureTier is a named severity bucket for a blood pressure reading.
type BloodPressureTier string

const (
	BPNormal   BloodPressureTier = "normal"
	BPElevated BloodPressureTier = "elevated"
	BPStage1   BloodPressureTier = "stage_1"
	BPStage2   BloodPressureTier = "stage_2"
	BPCrisis   BloodPressureTier = "crisis"
)

// BloodPressureClassification is the derived result for one reading. The
// message feeds directly into a manual alert right after the reading is
// saved.
type BloodPressureClassification struct {
	Tier        BloodPressureTier `json:"tier"`
	CallerLabel string            `json:"caller_label"`
	Message     string            `json:"message"`
}

// ClassifyBloodPressure maps systolic/diastolic integers to a severity tier.
// Rules are evaluated in order; the first match wins, so a crisis systolic
// dominates even when the diastolic alone would be a lower tier.
func ClassifyBloodPressure(systolic, diastolic int) BloodPressureClassification {
	var tier BloodPressureTier
	switch {
	case systolic > 180 || diastolic > 120:
		tier = BPCrisis
	case systolic >= 140 || diastolic >= 90:
		tier = BPStage2
	case systolic >= 130 || diastolic >= 80:
		tier = BPStage1
	case systolic >= 120 && diastolic < 80:
		tier = BPElevated
	default:
		tier = BPNormal
	}

	return BloodPressureClassification{
		Tier:        tier,
		CallerLabel: "Monitor de Presión Arterial",
		Message:     bloodPressureMessage(tier, systolic, diastolic),
	}
}

func bloodPressureMessage(tier BloodPressureTier, systolic, diastolic int) string {
	switch tier {
	case BPCrisis:
		return fmt.Sprintf("ALERTA ROJA: tu presión arterial %d sobre %d está en crisis hipertensiva. Llama a los servicios de emergencia de inmediato.", systolic, diastolic)
	case BPStage2:
		return fmt.Sprintf("Tu presión arterial %d sobre %d indica hipertensión etapa 2. Consulta a tu médico pronto.", systolic, diastolic)
	case BPStage1:
		return fmt.Sprintf("Tu presión arterial %d sobre %d indica hipertensión etapa 1. Cuida tu dieta y actividad física.", systolic, diastolic)
	case BPElevated:
		return fmt.Sprintf("Tu presión arterial %d sobre %d está elevada. Vigila tus próximas mediciones.", systolic, diastolic)
	default:
		return fmt.Sprintf("¡Felicidades! Tu presión arterial %d sobre %d es normal. Sigue así.", systolic, diastolic)
	}
}
