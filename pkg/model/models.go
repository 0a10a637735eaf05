package model

import "time"

// UserType distinguishes the two account roles in the product.
type UserType string

const (
	UserTypeElderly   UserType = "elderly"
	UserTypeCaretaker UserType = "caretaker"
)

// User represents an authenticated user as returned by the backend.
// The backend sends `role` and `_id`; the gateway maps them to UserType and ID.
type User struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	UserType UserType `json:"userType"`
}

// Session is the locally persisted authentication state. Token present
// implies UserType present; the session store enforces this by replacing
// all fields together.
type Session struct {
	UserID    string   `json:"user_id"`
	UserType  UserType `json:"user_type"`
	AuthToken string   `json:"auth_token"`
	User      *User    `json:"user,omitempty"`
}

// Question is a single wellbeing question in the daily check-in flow.
type Question struct {
	Text     string `json:"question"`
	Category string `json:"category"`
}

// QuestionAnswer pairs a question with the user's answer for batch submission.
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

// Mood is a discrete classification of a completed check-in.
type Mood string

const (
	MoodNormal          Mood = "Normal"
	MoodStressed        Mood = "Stressed"
	MoodDepressed       Mood = "Depressed"
	MoodHighlyDepressed Mood = "Highly Depressed"
	MoodUnknown         Mood = "Unknown"
)

// Confidence expresses how certain the analysis is.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// AnalysisSource records which path produced a MoodResult.
type AnalysisSource string

const (
	AnalysisSourceAI       AnalysisSource = "ai"
	AnalysisSourceFallback AnalysisSource = "fallback"
)

// MoodResult is the outcome of analyzing one completed check-in.
type MoodResult struct {
	Mood             Mood           `json:"mood"`
	Confidence       Confidence     `json:"confidence"`
	EmotionsDetected []string       `json:"emotionsDetected"`
	Reason           string         `json:"reason"`
	AnalysisSource   AnalysisSource `json:"analysisSource"`
}

// Concerning reports whether the mood warrants guiding the user toward
// therapy activities rather than the normal home screen.
func (r *MoodResult) Concerning() bool {
	switch r.Mood {
	case MoodStressed, MoodDepressed, MoodHighlyDepressed:
		return true
	}
	return false
}

// ChatMessage is one entry in the shared community stream. The backend owns
// canonical messages; Pending marks a locally created optimistic entry that
// has not been confirmed yet.
type ChatMessage struct {
	ID         string    `json:"_id"`
	Text       string    `json:"text"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	CreatedAt  time.Time `json:"createdAt"`
	Pending    bool      `json:"-"`
}

// MoodHistoryEntry is one day of mood history for an elderly user.
type MoodHistoryEntry struct {
	Date  string `json:"date"`
	Mood  string `json:"mood"`
	Notes string `json:"notes,omitempty"`
}

// ElderlyUser is the caretaker-facing view of one elderly person.
type ElderlyUser struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Age              int                `json:"age"`
	LastActive       string             `json:"lastActive"`
	CurrentMood      string             `json:"currentMood,omitempty"`
	HealthStatus     string             `json:"healthStatus"`
	RecentActivities []string           `json:"recentActivities,omitempty"`
	MoodHistory      []MoodHistoryEntry `json:"moodHistory,omitempty"`
}

// CaretakerDashboard aggregates the elderly users assigned to a caretaker.
type CaretakerDashboard struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	ElderlyUsers []ElderlyUser `json:"elderlyUsers"`
}
