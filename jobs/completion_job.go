package jobs

import (
	"log"
	"time"

	"github.com/aprendecomigo-edu/aprendecomigo-backend/database"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/models"
)

// CloseOutElapsedSessions auto-completes confirmed sessions whose teacher
// never reported an actual duration. The booked duration stands, so no hour
// adjustment is needed.
func CloseOutElapsedSessions() {
	log.Println("Running job: CloseOutElapsedSessions...")

	cutoff := time.Now().Add(-24 * time.Hour)

	var elapsedSessions []models.ClassSession

	err := database.DB.
		Where("status = ? AND scheduled_end < ?", models.SessionStatusConfirmed, cutoff).
		Find(&elapsedSessions).Error

	if err != nil {
		log.Printf("Error checking for elapsed sessions: %v", err)
		return
	}

	if len(elapsedSessions) == 0 {
		return
	}

	for _, session := range elapsedSessions {
		session.Status = models.SessionStatusCompleted
		booked := session.DurationHours
		session.ActualDurationHours = &booked
		database.DB.Save(&session)
	}

	log.Printf("Closed out %d elapsed session(s).", len(elapsedSessions))
}
