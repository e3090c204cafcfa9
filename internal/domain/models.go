package domain

// DefaultRoundSize is the number of questions in a round.
const DefaultRoundSize = 10

// MaxOptions is the number of options shown when the dataset has enough distinct values.
const MaxOptions = 4

// Question is a multiple-choice question built from one movie record.
// Options contain Answer exactly once and hold no duplicates.
type Question struct {
	Kind    Kind        `json:"kind"`
	Movie   MovieRecord `json:"movie"`
	Prompt  string      `json:"prompt"`
	Answer  Value       `json:"answer"`
	Options []Value     `json:"options"`
}

// Round is the ordered sequence of questions of one playthrough.
type Round []Question

// State is the phase of a game session.
type State string

const (
	StateAwaitingName  State = "awaitingName"
	StateInRound       State = "inRound"
	StateRoundComplete State = "roundComplete"
)

// QuestionView is a question as shown to a player, without its answer.
type QuestionView struct {
	Number    int      `json:"number"`
	Kind      Kind     `json:"kind"`
	Title     string   `json:"title"`
	PosterURL string   `json:"posterUrl"`
	Prompt    string   `json:"prompt"`
	Options   []string `json:"options"`
}

// NewQuestionView renders the question at position index of a round.
func NewQuestionView(index int, q Question) QuestionView {
	labels := make([]string, len(q.Options))
	for i, opt := range q.Options {
		labels[i] = opt.Label(q.Kind)
	}
	return QuestionView{
		Number:    index + 1,
		Kind:      q.Kind,
		Title:     q.Movie.Title,
		PosterURL: q.Movie.PosterURL,
		Prompt:    q.Prompt,
		Options:   labels,
	}
}

// SessionSnapshot is a read-only copy of a game session's progress.
type SessionSnapshot struct {
	SessionID    string        `json:"sessionId"`
	PlayerName   string        `json:"playerName"`
	State        State         `json:"state"`
	Index        int           `json:"index"`
	RoundSize    int           `json:"roundSize"`
	Score        int           `json:"score"`
	LastSelected string        `json:"lastSelected,omitempty"`
	Committed    bool          `json:"committed"`
	Question     *QuestionView `json:"question,omitempty"`
}

// AnswerResult summarizes the outcome of one submission.
type AnswerResult struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	Score         int    `json:"score"`
	RoundComplete bool   `json:"roundComplete"`
}

// Scores maps player names to their leaderboard score.
type Scores map[string]int

// LeaderboardEntry is one row of the leaderboard view.
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
}

// Leaderboard is the ordered top-K view of the scores.
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
}
