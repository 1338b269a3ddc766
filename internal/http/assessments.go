package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"wellness-hub/internal/domain"
)

const mockDisclaimer = "This is a mock prediction for testing purposes. Always consult with qualified healthcare providers for medical concerns."

// studentForm describes one POST /student/<name> form.
type studentForm struct {
	name        string
	kind        domain.AssessmentKind
	saved       string
	validate    func(domain.Payload) string
	predictions func() any
}

// questionnaires lists the screening instruments of the mental-health form.
var questionnaires = []struct {
	field   string
	label   string
	answers int
}{
	{"phq9_answers", "PHQ-9", 9},
	{"gad7_answers", "GAD-7", 7},
	{"pss_answers", "PSS-10", 10},
	{"who5_answers", "WHO-5", 5},
}

var studentForms = []studentForm{
	{
		name:  "stress",
		kind:  domain.AssessmentStress,
		saved: "Stress assessment saved successfully",
		validate: requireFields("academicPressure", "examAnxiety", "timeManagement", "peerComparison",
			"futureUncertainty", "sleepQuality", "copingMechanisms", "stressLevel"),
		predictions: func() any {
			return gin.H{"stressCategory": "Moderate", "burnoutRisk": "Low", "confidence": 0.7}
		},
	},
	{
		name:     "procrastination",
		kind:     domain.AssessmentProcrastination,
		saved:    "Procrastination data saved successfully",
		validate: requireNonEmptyList("tasks", "At least one task is required"),
	},
	{
		name:     "sleep",
		kind:     domain.AssessmentSleep,
		saved:    "Sleep data saved successfully",
		validate: requireFields("hoursSlept", "sleepQuality", "bedtime", "wakeTime", "stressLevel", "burnoutRisk"),
		predictions: func() any {
			return gin.H{"sleepScore": 72, "burnoutRisk": "Low"}
		},
	},
	{
		name:     "confidence",
		kind:     domain.AssessmentConfidence,
		saved:    "Confidence data saved successfully",
		validate: requireObject("reflections", "Reflections data is required"),
	},
	{
		name:  "career",
		kind:  domain.AssessmentCareer,
		saved: "Career planning data saved successfully",
		validate: func(p domain.Payload) string {
			if msg := requireObject("interests", "Interests data is required")(p); msg != "" {
				return msg
			}
			if s, _ := p["strengths"].(string); strings.TrimSpace(s) == "" {
				return "Strengths description is required"
			}
			return requireNonEmptyList("selectedCareers", "At least one selected career is required")(p)
		},
	},
}

func (h *Handler) healthTest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "Mock health server is running!",
		"timestamp": nowISO(),
		"available_endpoints": []string{
			"POST /api/health/diabetes-predict",
			"POST /api/health/heart-predict",
			"POST /api/health/mental-health-predict",
			"GET /api/health/diabetes-history",
			"GET /api/health/heart-disease-history",
			"GET /api/health/mental-health-history",
		},
	})
}

func (h *Handler) predictHeart(c *gin.Context) {
	var input domain.HeartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		abortMsg(c, http.StatusBadRequest, "Invalid heart disease input")
		return
	}
	result := domain.RiskAssessment{
		Prediction:  0,
		Probability: 0.32,
		Risk:        "Moderate",
		Confidence:  0.68,
		Recommendations: []string{
			"Monitor blood pressure regularly and maintain healthy lifestyle.",
			"Consider annual cardiovascular health check-ups.",
			"Maintain regular physical activity and healthy diet.",
		},
		Disclaimer: mockDisclaimer,
		Timestamp:  nowISO(),
	}
	h.respondAndRecord(c, domain.AssessmentHeart, input, result)
}

func (h *Handler) predictDiabetes(c *gin.Context) {
	var input domain.DiabetesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		abortMsg(c, http.StatusBadRequest, "Invalid diabetes input")
		return
	}
	result := domain.RiskAssessment{
		Prediction:      0,
		Probability:     0.3,
		Risk:            "Low",
		Confidence:      0.3,
		Recommendations: []string{"Mock diabetes prediction - testing mode"},
		Disclaimer:      mockDisclaimer,
		Timestamp:       nowISO(),
	}
	h.respondAndRecord(c, domain.AssessmentDiabetes, input, result)
}

func (h *Handler) predictMentalHealth(c *gin.Context) {
	var input domain.Payload
	if err := c.ShouldBindJSON(&input); err != nil {
		abortMsg(c, http.StatusBadRequest, "Invalid mental health input")
		return
	}
	for _, q := range questionnaires {
		if _, ok := input[q.field].([]any); !ok {
			abortMsg(c, http.StatusBadRequest, "Missing or invalid required field: "+q.field)
			return
		}
	}
	for _, q := range questionnaires {
		if answers := input[q.field].([]any); len(answers) != q.answers {
			abortMsg(c, http.StatusBadRequest, fmt.Sprintf("%s must have exactly %d answers", q.label, q.answers))
			return
		}
	}

	result := gin.H{
		"depression": gin.H{"severity": "Minimal", "score": 4},
		"anxiety":    gin.H{"severity": "Mild", "score": 6},
		"stress":     gin.H{"severity": "Moderate", "score": 17},
		"wellbeing":  gin.H{"level": "Good", "score": 60},
		"recommendations": []string{
			"Keep a regular sleep schedule.",
			"Reach out to someone you trust when you feel overwhelmed.",
		},
		"disclaimer": mockDisclaimer,
		"timestamp":  nowISO(),
	}
	h.respondAndRecord(c, domain.AssessmentMentalHealth, input, result)
}

func (h *Handler) assessWellness(c *gin.Context) {
	var input domain.Payload
	if err := c.ShouldBindJSON(&input); err != nil {
		abortMsg(c, http.StatusBadRequest, "Invalid wellness input")
		return
	}
	for _, field := range []string{"sleepHours", "exerciseFrequency", "screenTime", "littleInterest",
		"feelingDown", "troubleConcentrating", "feelingTired", "feelingAnxious", "hoursWorked"} {
		if v, ok := input[field].(float64); !ok || v < 0 {
			abortMsg(c, http.StatusBadRequest, "Invalid or missing input for "+field)
			return
		}
	}
	switch input["deadlinePressure"] {
	case "low", "medium", "high":
	default:
		abortMsg(c, http.StatusBadRequest, "Invalid value for deadlinePressure")
		return
	}

	result := gin.H{
		"stressLevel":    "Moderate",
		"depressionRisk": "Low",
		"suggestions": []string{
			"Take short breaks during long study sessions.",
			"Aim for 7-9 hours of sleep.",
		},
		"disclaimer": "This assessment is not a medical diagnosis. It is intended for awareness and self-reflection only.",
	}
	assessment, ok := h.record(c, domain.AssessmentWellness, input, result)
	if !ok {
		return
	}
	result["_id"] = strconv.FormatInt(assessment.ID, 10)
	result["createdAt"] = assessment.CreatedAt
	result["saved"] = true
	c.JSON(http.StatusOK, result)
}

func (h *Handler) submitStudentForm(form studentForm) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input domain.Payload
		if err := c.ShouldBindJSON(&input); err != nil {
			abortMsg(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		if msg := form.validate(input); msg != "" {
			abortMsg(c, http.StatusBadRequest, msg)
			return
		}

		var predictions any
		if form.predictions != nil {
			predictions = form.predictions()
		}
		assessment, ok := h.record(c, form.kind, input, predictions)
		if !ok {
			return
		}

		resp := gin.H{
			"msg": form.saved,
			"id":  strconv.FormatInt(assessment.ID, 10),
		}
		if predictions != nil {
			resp["predictions"] = predictions
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (h *Handler) assessmentHistory(kind domain.AssessmentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, ok := h.history(c, kind)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func (h *Handler) stressHistory(c *gin.Context) {
	items, ok := h.history(c, domain.AssessmentStress)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": items})
}

func (h *Handler) weeklySleep(c *gin.Context) {
	items, ok := h.history(c, domain.AssessmentSleep)
	if !ok {
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -7)
	week := make([]domain.Assessment, 0, len(items))
	for _, a := range items {
		if !a.CreatedAt.Before(cutoff) {
			week = append(week, a)
		}
	}
	sort.SliceStable(week, func(i, j int) bool {
		return week[i].CreatedAt.Before(week[j].CreatedAt)
	})
	c.JSON(http.StatusOK, gin.H{"weeklyData": week})
}

func (h *Handler) studentResources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"resources": studentResources})
}

func (h *Handler) respondAndRecord(c *gin.Context, kind domain.AssessmentKind, input, result any) {
	if _, ok := h.record(c, kind, input, result); !ok {
		return
	}
	c.JSON(http.StatusOK, result)
}

// record stores the submission for the history endpoints. On failure it has
// already written the error response.
func (h *Handler) record(c *gin.Context, kind domain.AssessmentKind, input, result any) (*domain.Assessment, bool) {
	in, err := json.Marshal(input)
	if err != nil {
		abortMsg(c, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	assessment := &domain.Assessment{
		UserID: currentUserID(c),
		Kind:   kind,
		Input:  in,
	}
	if result != nil {
		out, err := json.Marshal(result)
		if err != nil {
			h.log.WithError(err).Error("encode assessment result")
			abortMsg(c, http.StatusInternalServerError, "Server error")
			return nil, false
		}
		assessment.Result = out
	}

	if _, err := h.assessments.Create(c.Request.Context(), assessment); err != nil {
		h.log.WithError(err).WithField("kind", kind).Error("save assessment")
		abortMsg(c, http.StatusInternalServerError, "Server error")
		return nil, false
	}
	return assessment, true
}

func (h *Handler) history(c *gin.Context, kind domain.AssessmentKind) ([]domain.Assessment, bool) {
	items, err := h.assessments.ListByUser(c.Request.Context(), currentUserID(c), kind, 0)
	if err != nil {
		h.log.WithError(err).WithField("kind", kind).Error("list assessments")
		abortMsg(c, http.StatusInternalServerError, fmt.Sprintf("Server error retrieving %s history", kind))
		return nil, false
	}
	return items, true
}

func requireFields(fields ...string) func(domain.Payload) string {
	return func(p domain.Payload) string {
		var missing []string
		for _, f := range fields {
			if v, ok := p[f]; !ok || v == nil {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			return "Missing required fields: " + strings.Join(missing, ", ")
		}
		return ""
	}
}

func requireNonEmptyList(field, msg string) func(domain.Payload) string {
	return func(p domain.Payload) string {
		if list, ok := p[field].([]any); !ok || len(list) == 0 {
			return msg
		}
		return ""
	}
}

func requireObject(field, msg string) func(domain.Payload) string {
	return func(p domain.Payload) string {
		if _, ok := p[field].(map[string]any); !ok {
			return msg
		}
		return ""
	}
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

var studentResources = gin.H{
	"emergencyContacts": []gin.H{
		{"name": "National Suicide Prevention Lifeline", "contact": "988", "description": "24/7 free and confidential emotional support"},
		{"name": "Crisis Text Line", "contact": "Text HOME to 741741", "description": "Free 24/7 support via text message"},
	},
	"campusResources": []gin.H{
		{"type": "Counseling Center", "description": "Professional counseling services for students", "availability": "Usually Monday-Friday, 9AM-5PM"},
		{"type": "Peer Support Groups", "description": "Student-led support groups for various mental health concerns", "availability": "Weekly meetings, check student services"},
	},
	"selfHelpResources": []gin.H{
		{"category": "Mental Health Apps", "items": []string{"Calm", "Headspace", "Insight Timer", "Moodpath"}},
		{"category": "Helpful Books", "items": []string{"The Anxiety & Phobia Workbook", "Feeling Good", "The Happiness Trap"}},
	},
	"educationalContent": gin.H{
		"copingStrategies": []string{
			"Practice deep breathing",
			"Maintain regular exercise",
			"Stay connected with supportive people",
			"Get adequate sleep",
		},
	},
}
