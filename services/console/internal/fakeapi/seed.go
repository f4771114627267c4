package fakeapi

import (
	"fmt"
	"time"
)

// Demo user ids created by SeedDemo.
const (
	DemoStaffID int64 = 1
	DemoUserID  int64 = 2
)

// SeedDemo fills the API with a small catalogue for dev mode.
func (a *API) SeedDemo() {
	a.AddUser(DemoStaffID, "moderator", "staff")
	a.AddUser(DemoUserID, "cinephile", "user")
	a.AddUser(3, "popcorn", "user")

	titles := []string{"Stalker", "Paprika", "Heat", "Amélie", "Ran"}
	for i, t := range titles {
		a.AddMovie(int64(i+1), t)
	}
	a.Rate(DemoUserID, 1, 9)
	a.Rate(3, 1, 6)

	base := time.Now().UTC().Add(-72 * time.Hour)
	for i := 0; i < 25; i++ {
		author := int64(2 + i%2)
		movie := int64(1 + i%len(titles))
		a.SeedComment(author, movie, fmt.Sprintf("Thoughts on %s, take %d.", titles[movie-1], i+1), base.Add(time.Duration(i)*time.Hour))
	}
	a.SeedReply(1, 3, "Completely disagree.")
	a.SeedReply(1, DemoUserID, "Fair, but the ending holds up.")
}
