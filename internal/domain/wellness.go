package domain

import (
	"encoding/json"
	"time"
)

// Payload is a free-form feature submission for forms whose shape is owned
// by the UI (procrastination tasks, confidence reflections, career interests,
// mental-health questionnaires).
type Payload map[string]any

// Submission is the common response of the /student/* form endpoints.
type Submission struct {
	Msg         string          `json:"msg"`
	ID          string          `json:"id,omitempty"`
	Predictions json.RawMessage `json:"predictions,omitempty"`
}

// HasPredictions reports whether the backend attached a prediction block.
func (s Submission) HasPredictions() bool {
	return len(s.Predictions) > 0 && string(s.Predictions) != "null"
}

// DecodePredictions unmarshals the prediction block into v.
func (s Submission) DecodePredictions(v any) error {
	if !s.HasPredictions() {
		return nil
	}
	return json.Unmarshal(s.Predictions, v)
}

// RiskAssessment is the canned prediction returned by the /health/*-predict endpoints.
type RiskAssessment struct {
	Prediction      int                `json:"prediction"`
	Probability     float64            `json:"probability"`
	Risk            string             `json:"risk"`
	Confidence      float64            `json:"confidence"`
	Recommendations []string           `json:"recommendations,omitempty"`
	RiskFactors     map[string]float64 `json:"risk_factors,omitempty"`
	Disclaimer      string             `json:"disclaimer,omitempty"`
	Timestamp       string             `json:"timestamp,omitempty"`
}

// StressEntry is a student stress self-assessment.
type StressEntry struct {
	AcademicPressure  int    `json:"academicPressure"`
	ExamAnxiety       int    `json:"examAnxiety"`
	TimeManagement    int    `json:"timeManagement"`
	PeerComparison    int    `json:"peerComparison"`
	FutureUncertainty int    `json:"futureUncertainty"`
	SleepQuality      int    `json:"sleepQuality"`
	CopingMechanisms  int    `json:"copingMechanisms"`
	StressLevel       int    `json:"stressLevel"`
	JournalEntry      string `json:"journalEntry,omitempty"`
}

// SleepEntry is one night of sleep tracking.
type SleepEntry struct {
	Date             string        `json:"date"`
	Bedtime          string        `json:"bedtime"`
	WakeTime         string        `json:"wakeTime"`
	HoursSlept       float64       `json:"hoursSlept"`
	SleepQuality     int           `json:"sleepQuality"`
	CaffeineIntake   int           `json:"caffeineIntake"`
	ScreenTimeBefore float64       `json:"screenTimeBeforeBed"`
	HygieneChecklist []HygieneItem `json:"hygieneChecklist,omitempty"`
	StressLevel      int           `json:"stressLevel"`
	BurnoutRisk      int           `json:"burnoutRisk"`
}

// HygieneItem is a single sleep-hygiene checkbox.
type HygieneItem struct {
	Item      string `json:"item"`
	Completed bool   `json:"completed"`
}

// HeartInput carries the features of the heart disease form.
type HeartInput struct {
	Age            int     `json:"age"`
	Sex            int     `json:"sex"`
	ChestPainType  int     `json:"chestPainType"`
	RestingBP      int     `json:"restingBP"`
	Cholesterol    int     `json:"cholesterol"`
	FastingBS      int     `json:"fastingBS"`
	RestingECG     int     `json:"restingECG"`
	MaxHR          int     `json:"maxHR"`
	ExerciseAngina int     `json:"exerciseAngina"`
	Oldpeak        float64 `json:"oldpeak"`
	StSlope        int     `json:"stSlope"`
}

// DiabetesInput carries the features of the diabetes form.
type DiabetesInput struct {
	Pregnancies              int     `json:"pregnancies"`
	Glucose                  float64 `json:"glucose"`
	BloodPressure            float64 `json:"bloodPressure"`
	SkinThickness            float64 `json:"skinThickness"`
	Insulin                  float64 `json:"insulin"`
	BMI                      float64 `json:"bmi"`
	DiabetesPedigreeFunction float64 `json:"diabetesPedigreeFunction"`
	Age                      int     `json:"age"`
}

// WellnessInput is the general wellness questionnaire.
type WellnessInput struct {
	SleepHours           float64 `json:"sleepHours"`
	ExerciseFrequency    int     `json:"exerciseFrequency"`
	ScreenTime           float64 `json:"screenTime"`
	LittleInterest       int     `json:"littleInterest"`
	FeelingDown          int     `json:"feelingDown"`
	TroubleConcentrating int     `json:"troubleConcentrating"`
	FeelingTired         int     `json:"feelingTired"`
	FeelingAnxious       int     `json:"feelingAnxious"`
	HoursWorked          float64 `json:"hoursWorked"`
	DeadlinePressure     string  `json:"deadlinePressure"`
}

// Journal is a diary entry.
type Journal struct {
	ID        string    `json:"_id,omitempty"`
	User      string    `json:"user,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood,omitempty"`
	Sentiment string    `json:"sentiment,omitempty"`
	Date      time.Time `json:"date,omitzero"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// AssessmentKind names a stored assessment family.
type AssessmentKind string

const (
	AssessmentHeart           AssessmentKind = "heart-disease"
	AssessmentDiabetes        AssessmentKind = "diabetes"
	AssessmentMentalHealth    AssessmentKind = "mental-health"
	AssessmentStress          AssessmentKind = "stress"
	AssessmentSleep           AssessmentKind = "sleep"
	AssessmentProcrastination AssessmentKind = "procrastination"
	AssessmentConfidence      AssessmentKind = "confidence"
	AssessmentCareer          AssessmentKind = "career"
	AssessmentWellness        AssessmentKind = "wellness"
)

// Assessment is a stored submission together with the prediction it produced.
type Assessment struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
	Kind      AssessmentKind  `json:"kind"`
	Input     json.RawMessage `json:"input"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
