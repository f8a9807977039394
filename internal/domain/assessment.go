package domain

import (
	"math"
	"strconv"
	"strings"
)

// Field names accepted by the assessment form. They match the JSON keys of
// the prediction service so the form and the wire payload share one vocabulary.
const (
	FieldAge         = "age"
	FieldGender      = "gender"
	FieldHeight      = "height"
	FieldWeight      = "weight"
	FieldSystolicBP  = "ap_hi"
	FieldDiastolicBP = "ap_lo"
	FieldCholesterol = "cholesterol"
	FieldGlucose     = "gluc"
	FieldSmoker      = "smoke"
	FieldAlcoholUse  = "alco"
	FieldActive      = "active"
)

// FieldNames lists every form field in display order.
var FieldNames = []string{
	FieldAge, FieldGender, FieldHeight, FieldWeight,
	FieldSystolicBP, FieldDiastolicBP, FieldCholesterol, FieldGlucose,
	FieldSmoker, FieldAlcoholUse, FieldActive,
}

// Gender codes
const (
	GenderFemale = 1
	GenderMale   = 2
)

// Level codes shared by cholesterol and glucose
const (
	LevelNormal          = 1
	LevelAboveNormal     = 2
	LevelWellAboveNormal = 3
)

// ClinicalInput holds the raw values entered on the assessment form.
// Numeric fields stay as text until submission so a half-typed value is
// never lost; validation happens in Validate.
type ClinicalInput struct {
	Age              string `json:"age" validate:"required,number,whole"`
	Gender           string `json:"gender" validate:"required,oneof=1 2"`
	Height           string `json:"height" validate:"required,number,whole"`
	Weight           string `json:"weight" validate:"required,numeric,finite"`
	SystolicBP       string `json:"ap_hi" validate:"required,number,whole"`
	DiastolicBP      string `json:"ap_lo" validate:"required,number,whole"`
	Cholesterol      string `json:"cholesterol" validate:"required,oneof=1 2 3"`
	Glucose          string `json:"gluc" validate:"required,oneof=1 2 3"`
	Smoker           bool   `json:"smoke"`
	AlcoholUse       bool   `json:"alco"`
	PhysicallyActive bool   `json:"active"`
}

// Set assigns one field by its form name. Unknown names report false.
func (in *ClinicalInput) Set(name, value string) bool {
	value = strings.TrimSpace(value)
	switch name {
	case FieldAge:
		in.Age = value
	case FieldGender:
		in.Gender = value
	case FieldHeight:
		in.Height = value
	case FieldWeight:
		in.Weight = value
	case FieldSystolicBP:
		in.SystolicBP = value
	case FieldDiastolicBP:
		in.DiastolicBP = value
	case FieldCholesterol:
		in.Cholesterol = value
	case FieldGlucose:
		in.Glucose = value
	case FieldSmoker:
		in.Smoker = parseCheckbox(value)
	case FieldAlcoholUse:
		in.AlcoholUse = parseCheckbox(value)
	case FieldActive:
		in.PhysicallyActive = parseCheckbox(value)
	default:
		return false
	}
	return true
}

// Value returns the raw text of a field, used to refill the form.
func (in ClinicalInput) Value(name string) string {
	switch name {
	case FieldAge:
		return in.Age
	case FieldGender:
		return in.Gender
	case FieldHeight:
		return in.Height
	case FieldWeight:
		return in.Weight
	case FieldSystolicBP:
		return in.SystolicBP
	case FieldDiastolicBP:
		return in.DiastolicBP
	case FieldCholesterol:
		return in.Cholesterol
	case FieldGlucose:
		return in.Glucose
	case FieldSmoker:
		return checkboxValue(in.Smoker)
	case FieldAlcoholUse:
		return checkboxValue(in.AlcoholUse)
	case FieldActive:
		return checkboxValue(in.PhysicallyActive)
	}
	return ""
}

// Normalize converts the form values into the numeric wire payload.
// Values that do not parse become zero; callers validate first.
func (in ClinicalInput) Normalize() PredictionRequest {
	req := PredictionRequest{
		Age:         atoi(in.Age),
		Gender:      atoi(in.Gender),
		Height:      atoi(in.Height),
		Weight:      atof(in.Weight),
		SystolicBP:  atoi(in.SystolicBP),
		DiastolicBP: atoi(in.DiastolicBP),
		Cholesterol: atoi(in.Cholesterol),
		Glucose:     atoi(in.Glucose),
		Smoke:       boolToInt(in.Smoker),
		Alcohol:     boolToInt(in.AlcoholUse),
		Active:      boolToInt(in.PhysicallyActive),
	}
	return req.Normalize()
}

// PredictionRequest is the body of POST /predict.
type PredictionRequest struct {
	Age         int     `json:"age"`
	Gender      int     `json:"gender"`
	Height      int     `json:"height"`
	Weight      float64 `json:"weight"`
	SystolicBP  int     `json:"ap_hi"`
	DiastolicBP int     `json:"ap_lo"`
	Cholesterol int     `json:"cholesterol"`
	Glucose     int     `json:"gluc"`
	Smoke       int     `json:"smoke"`
	Alcohol     int     `json:"alco"`
	Active      int     `json:"active"`
}

// Normalize coerces the lifestyle flags to exactly 0 or 1. It is a fixed
// point: Normalize(Normalize(r)) == Normalize(r).
func (r PredictionRequest) Normalize() PredictionRequest {
	r.Smoke = flag(r.Smoke)
	r.Alcohol = flag(r.Alcohol)
	r.Active = flag(r.Active)
	return r
}

// PredictionResult is the response of the prediction service. Only
// Probability drives the risk tier; the rest is echoed for display.
type PredictionResult struct {
	Probability   []float64 `json:"probability"`
	Prediction    *int      `json:"prediction,omitempty"`
	BMI           *float64  `json:"bmi,omitempty"`
	PulsePressure *float64  `json:"pulse_pressure,omitempty"`
	Age           *int      `json:"age,omitempty"`
	SystolicBP    *int      `json:"ap_hi,omitempty"`
	Message       string    `json:"message,omitempty"`
}

func parseCheckbox(v string) bool {
	switch strings.ToLower(v) {
	case "on", "yes", "checked":
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func checkboxValue(b bool) string {
	if b {
		return "on"
	}
	return ""
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func atof(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func flag(n int) int {
	if n != 0 {
		return 1
	}
	return 0
}
