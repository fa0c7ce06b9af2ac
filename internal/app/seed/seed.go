// Package seed populates an empty store with a demo classroom so the app is
// usable out of the box.
package seed

import (
	"context"
	"fmt"

	"github.com/classbank/ledger/internal/app/services/ledger"
	"github.com/classbank/ledger/internal/app/storage"
	"github.com/classbank/ledger/pkg/logger"
)

type studentFixture struct {
	name     string
	pin      string
	saveGoal int
}

type missionFixture struct {
	title       string
	description string
	baseReward  int
	bandColor   string
}

type rewardFixture struct {
	title       string
	description string
	cost        int
	icon        string
}

var students = []studentFixture{
	{name: "Alex", pin: "1111", saveGoal: 200},
	{name: "Jordan", pin: "2222", saveGoal: 150},
	{name: "Sam", pin: "3333", saveGoal: 250},
}

var missions = []missionFixture{
	{title: "Organize Classroom Library", description: "Sort and shelve all the books by category.", baseReward: 100, bandColor: "blue"},
	{title: "Help Setup Science Lab", description: "Prepare equipment for this week's experiments.", baseReward: 120, bandColor: "green"},
	{title: "Create Welcome Poster", description: "Design a poster for new students.", baseReward: 80, bandColor: "yellow"},
	{title: "Tech Helper for Week", description: "Assist classmates with tablets and logins.", baseReward: 150, bandColor: "purple"},
	{title: "Lunch Monitor Assistant", description: "Help keep the lunch line moving.", baseReward: 90, bandColor: "orange"},
	{title: "Garden Maintenance", description: "Water and weed the class garden beds.", baseReward: 110, bandColor: "green"},
	{title: "Peer Tutoring Session", description: "Tutor a classmate in math or reading.", baseReward: 130, bandColor: "blue"},
	{title: "Event Planning Helper", description: "Help plan the end-of-term celebration.", baseReward: 140, bandColor: "red"},
}

var rewards = []rewardFixture{
	{title: "Extra Deadline Extension", description: "One extra day on any assignment.", cost: 50, icon: "⏰"},
	{title: "Test Hint Card", description: "One hint on a quiz question.", cost: 30, icon: "💡"},
	{title: "Homework Pass", description: "Skip one homework assignment.", cost: 80, icon: "📝"},
	{title: "Mystery Reward", description: "A surprise chosen by the teacher.", cost: 100, icon: "🎁"},
}

// Apply inserts the demo classroom through the ledger so all invariants hold.
// It is a no-op when students already exist.
func Apply(ctx context.Context, led *ledger.Service, store storage.StudentStore, log *logger.Logger) error {
	if log == nil {
		log = logger.NewDefault("seed")
	}

	existing, err := store.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("check existing students: %w", err)
	}
	if len(existing) > 0 {
		log.WithField("students", len(existing)).Info("store already populated, skipping seed")
		return nil
	}

	for _, f := range students {
		if _, err := led.CreateStudent(ctx, f.name, f.pin, f.saveGoal); err != nil {
			return fmt.Errorf("seed student %s: %w", f.name, err)
		}
	}
	for _, f := range missions {
		if _, err := led.CreateMission(ctx, f.title, f.description, f.baseReward, f.bandColor); err != nil {
			return fmt.Errorf("seed mission %s: %w", f.title, err)
		}
	}
	for _, f := range rewards {
		if _, err := led.CreateReward(ctx, f.title, f.description, f.cost, f.icon); err != nil {
			return fmt.Errorf("seed reward %s: %w", f.title, err)
		}
	}

	log.WithField("students", len(students)).
		WithField("missions", len(missions)).
		WithField("rewards", len(rewards)).
		Info("demo classroom seeded")
	return nil
}
