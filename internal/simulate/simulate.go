// Package simulate fabricates audience reactions to a post so the memory loop
// has engagement to learn from.
package simulate

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"

	"para/internal/db"
)

var CommentSeeds = []string{
	"This is unsettling in the best way.",
	"Post more of this vibe.",
	"The palette is perfect.",
	"I did not expect that ending.",
	"This feels like a memory from the future.",
}

type Batch struct {
	Feedback []db.FeedbackInput `json:"feedback"`
	Comments []string           `json:"comments"`
}

// Generate draws one batch: 4-21 likes, 0-5 comments, 0-7 saves, 0-3 follows
// and 1-4 dwell events of 900-3299ms. Every comment signal has a matching
// comment body.
func Generate(rng *rand.Rand) Batch {
	likes := 4 + rng.IntN(18)
	comments := rng.IntN(6)
	saves := rng.IntN(8)
	follows := rng.IntN(4)
	dwells := 1 + rng.IntN(4)

	b := Batch{
		Feedback: make([]db.FeedbackInput, 0, likes+comments+saves+follows+dwells),
		Comments: make([]string, 0, comments),
	}
	add := func(signal string, n int) {
		for i := 0; i < n; i++ {
			b.Feedback = append(b.Feedback, db.FeedbackInput{Signal: signal, Meta: map[string]any{}})
		}
	}
	add(db.SignalLike, likes)
	add(db.SignalComment, comments)
	add(db.SignalSave, saves)
	add(db.SignalFollow, follows)
	for i := 0; i < dwells; i++ {
		b.Feedback = append(b.Feedback, db.FeedbackInput{
			Signal: db.SignalDwell,
			Meta:   map[string]any{"dwell_ms": 900 + rng.IntN(2400)},
		})
	}
	for i := 0; i < comments; i++ {
		b.Comments = append(b.Comments, CommentSeeds[rng.IntN(len(CommentSeeds))])
	}
	return b
}

// Apply generates a batch for postID and stores it.
func Apply(ctx context.Context, database *sql.DB, postID string, rng *rand.Rand) (Batch, error) {
	if _, err := db.GetPost(ctx, database, postID); err != nil {
		return Batch{}, err
	}
	b := Generate(rng)
	if _, err := db.InsertFeedback(ctx, database, postID, b.Feedback); err != nil {
		return Batch{}, fmt.Errorf("insert feedback: %w", err)
	}
	if len(b.Comments) > 0 {
		if _, err := db.InsertComments(ctx, database, postID, b.Comments); err != nil {
			return Batch{}, fmt.Errorf("insert comments: %w", err)
		}
	}
	return b, nil
}
