package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/aprendecomigo-edu/aprendecomigo-backend/database"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/models"
	"github.com/aprendecomigo-edu/aprendecomigo-backend/notifications"
)

func SendSessionReminders() {
	log.Println("Running job: SendSessionReminders...")

	now := time.Now()
	lowerBound := now.Add(60 * time.Minute)
	upperBound := now.Add(65 * time.Minute)

	var upcomingSessions []models.ClassSession

	err := database.DB.
		Preload("Students").
		Preload("Teacher").
		Where("status = ? AND scheduled_start BETWEEN ? AND ?", models.SessionStatusConfirmed, lowerBound, upperBound).
		Find(&upcomingSessions).Error

	if err != nil {
		log.Printf("Error checking for upcoming sessions: %v", err)
		return
	}

	if len(upcomingSessions) == 0 {
		return
	}

	for _, session := range upcomingSessions {
		log.Printf("Sending reminder for session ID: %s", session.ID)

		emailSubject := "Reminder: Your Session Starts in 1 Hour!"
		emailBody := fmt.Sprintf(
			"<h1>Session Reminder</h1><p>Hi there,</p><p>This is a friendly reminder that your tutoring session is scheduled to start in one hour at %s.</p>",
			session.ScheduledStart.Format(time.Kitchen),
		)

		for _, student := range session.Students {
			go notifications.SendEmail(student.FullName, student.Email, emailSubject, emailBody)
		}
		go notifications.SendEmail(session.Teacher.FullName, session.Teacher.Email, emailSubject, emailBody)
	}
}
