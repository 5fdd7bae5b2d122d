package repository

import (
	"fmt"
	"log"
	"testing"
	"time"

	"ctfhost/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
)

var db *gorm.DB

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}

	// uses pool to try to connect to Docker
	err = pool.Client.Ping()
	if err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	// pulls an image, creates a container based on it and runs it
	resource, err := pool.Run("postgres", "17.2-alpine", []string{"POSTGRES_USER=postgres", "POSTGRES_PASSWORD=postgres", "DATABASE_NAME=postgres"})
	if err != nil {
		log.Fatalf("Could not start resource: %s", err)
	}
	resource.Expire(600) // Tell docker to hard kill the container in 10 minutes
	sqlInfo := fmt.Sprintf(
		"host=localhost port=%s user=postgres password=postgres dbname=postgres sslmode=disable search_path=ctfhost",
		resource.GetPort("5432/tcp"))

	// exponential backoff-retry, because the application in the container might not be ready to accept connections yet
	if err := pool.Retry(func() error {
		var err error
		db, err = gorm.Open(postgres.Open(sqlInfo), &gorm.Config{
			NamingStrategy: schema.NamingStrategy{
				TablePrefix:   "ctfhost.",
				SingularTable: false,
			},
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return err
		}
		db.Exec(`CREATE SCHEMA IF NOT EXISTS ctfhost`)
		return db.AutoMigrate(
			&Team{},
			&Submission{},
			&HintPurchase{},
			&SubmissionThrottle{},
		)
	}); err != nil {
		log.Fatalf("Could not connect to database: %s", err)
	}
	config.SetDatabaseConnection(db)

	// as of go1.15 testing.M returns the exit code of m.Run(), so it is safe to use defer here
	defer func() {
		if err := pool.Purge(resource); err != nil {
			log.Fatalf("Could not purge resource: %s", err)
		}
	}()
	m.Run()
}

func TearDown() {
	db.Exec("DELETE FROM ctfhost.submission_throttles")
	db.Exec("DELETE FROM ctfhost.hint_purchases")
	db.Exec("DELETE FROM ctfhost.submissions")
	db.Exec("DELETE FROM ctfhost.teams")
}

func SetUpTeam(name string) *Team {
	team := &Team{
		Name:         name,
		FullName:     name + " full",
		Email:        name + "@example.com",
		PasswordHash: "x",
		TokenSeed:    "0123456789abcdef0123456789abcdef",
	}
	if err := db.Create(team).Error; err != nil {
		log.Fatalf("Error creating team: %v", err)
	}
	return team
}

func TestAddSubmissionRejectsSecondSolve(t *testing.T) {
	team := SetUpTeam("team1")
	defer TearDown()
	repo := NewSubmissionRepository()

	err := repo.AddSubmission(&Submission{
		TeamId: team.Id, TaskId: 1, Flag: "FLAG{a}", Correct: true, Points: 100, Timestamp: time.Now(),
	})
	assert.NoError(t, err)

	// A second submission after the solve is rejected, correct or not.
	err = repo.AddSubmission(&Submission{
		TeamId: team.Id, TaskId: 1, Flag: "FLAG{a}", Correct: true, Points: 100, Timestamp: time.Now(),
	})
	assert.ErrorIs(t, err, ErrTaskAlreadySolved)
	err = repo.AddSubmission(&Submission{
		TeamId: team.Id, TaskId: 1, Flag: "FLAG{b}", Correct: false, Points: 0, Timestamp: time.Now(),
	})
	assert.ErrorIs(t, err, ErrTaskAlreadySolved)

	total, err := repo.TotalPoints(team.Id)
	assert.NoError(t, err)
	assert.Equal(t, 100, total)
}

func TestAddSubmissionRecordsIncorrectRepeats(t *testing.T) {
	team := SetUpTeam("team1")
	defer TearDown()
	repo := NewSubmissionRepository()

	for i := 0; i < 3; i++ {
		err := repo.AddSubmission(&Submission{
			TeamId: team.Id, TaskId: 1, Flag: "FLAG{wrong}", Correct: false, Points: 0, Timestamp: time.Now(),
		})
		assert.NoError(t, err)
	}

	submissions, err := repo.GetSubmissionsForTeam(team.Id)
	assert.NoError(t, err)
	assert.Len(t, submissions, 3)

	solved, err := repo.HasCorrectSubmission(team.Id, 1)
	assert.NoError(t, err)
	assert.False(t, solved)
}

func TestCountSolvesAcrossTeams(t *testing.T) {
	team1 := SetUpTeam("team1")
	team2 := SetUpTeam("team2")
	defer TearDown()
	repo := NewSubmissionRepository()

	count, err := repo.CountSolves(7)
	assert.NoError(t, err)
	assert.Zero(t, count)

	assert.NoError(t, repo.AddSubmission(&Submission{
		TeamId: team1.Id, TaskId: 7, Flag: "f", Correct: true, Points: 50, Timestamp: time.Now(),
	}))
	assert.NoError(t, repo.AddSubmission(&Submission{
		TeamId: team2.Id, TaskId: 7, Flag: "f", Correct: true, Points: 50, Timestamp: time.Now(),
	}))

	count, err = repo.CountSolves(7)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestHintPurchaseChargesOnce(t *testing.T) {
	team := SetUpTeam("team1")
	defer TearDown()
	submissions := NewSubmissionRepository()
	hints := NewHintPurchaseRepository()

	assert.NoError(t, submissions.AddSubmission(&Submission{
		TeamId: team.Id, TaskId: 1, Flag: "f", Correct: true, Points: 100, Timestamp: time.Now(),
	}))

	hintId := "00112233445566778899aabbccddeeff"
	assert.NoError(t, hints.Purchase(team.Id, 2, hintId, 30))
	// Accessing an already purchased hint charges nothing.
	assert.NoError(t, hints.Purchase(team.Id, 2, hintId, 30))

	spent, err := hints.TotalCost(team.Id)
	assert.NoError(t, err)
	assert.Equal(t, 30, spent)

	purchased, err := hints.HasPurchase(team.Id, 2, hintId)
	assert.NoError(t, err)
	assert.True(t, purchased)
}

func TestHintPurchaseInsufficientPoints(t *testing.T) {
	team := SetUpTeam("team1")
	defer TearDown()
	submissions := NewSubmissionRepository()
	hints := NewHintPurchaseRepository()

	assert.NoError(t, submissions.AddSubmission(&Submission{
		TeamId: team.Id, TaskId: 1, Flag: "f", Correct: true, Points: 20, Timestamp: time.Now(),
	}))

	err := hints.Purchase(team.Id, 2, "00112233445566778899aabbccddeeff", 30)
	assert.ErrorIs(t, err, ErrNotEnoughPoints)

	spent, err := hints.TotalCost(team.Id)
	assert.NoError(t, err)
	assert.Zero(t, spent)
}

func TestThrottleCooldown(t *testing.T) {
	team := SetUpTeam("team1")
	defer TearDown()
	repo := NewThrottleRepository()

	ok, err := repo.TryAcquire(team.Id, time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok, "the first submission is never throttled")

	ok, err = repo.TryAcquire(team.Id, time.Minute)
	assert.NoError(t, err)
	assert.False(t, ok, "an immediate retry is throttled")

	// A zero interval means the cooldown has always expired.
	ok, err = repo.TryAcquire(team.Id, 0)
	assert.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, repo.Reset(team.Id))
	ok, err = repo.TryAcquire(team.Id, time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok, "reset clears the cooldown")
}

func TestThrottleIsPerTeam(t *testing.T) {
	team1 := SetUpTeam("team1")
	team2 := SetUpTeam("team2")
	defer TearDown()
	repo := NewThrottleRepository()

	ok, err := repo.TryAcquire(team1.Id, time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TryAcquire(team2.Id, time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok, "one team's cooldown must not block another")
}

func TestDeleteTeamCascades(t *testing.T) {
	team := SetUpTeam("team1")
	defer TearDown()
	teams := NewTeamRepository()
	submissions := NewSubmissionRepository()
	hints := NewHintPurchaseRepository()

	assert.NoError(t, submissions.AddSubmission(&Submission{
		TeamId: team.Id, TaskId: 1, Flag: "f", Correct: true, Points: 100, Timestamp: time.Now(),
	}))
	assert.NoError(t, hints.Purchase(team.Id, 1, "00112233445566778899aabbccddeeff", 10))

	assert.NoError(t, teams.Delete(team.Id))

	rows, err := submissions.GetSubmissionsForTeam(team.Id)
	assert.NoError(t, err)
	assert.Empty(t, rows)
	purchases, err := hints.GetPurchasesForTeam(team.Id)
	assert.NoError(t, err)
	assert.Empty(t, purchases)
}
