package trivia

import (
	"fmt"
	"math/rand"
	"sync"

	"movie-trivia/internal/domain"
)

var prompts = map[domain.Kind]string{
	domain.KindDirector: "Who directed the movie %s?",
	domain.KindActor:    "Who played the main role in %s?",
	domain.KindRating:   "What is the IMDB rating of %s?",
	domain.KindYear:     "In what year was %s released?",
	domain.KindGross:    "What are the gross earnings of %s?",
}

// Generator builds questions and rounds from an Index. The random source is
// injected so tests can replay a sequence; access to it is serialized because
// one generator is shared by every session.
type Generator struct {
	index *Index

	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(index *Index, rng *rand.Rand) *Generator {
	return &Generator{index: index, rng: rng}
}

// Index returns the dataset index the generator draws from.
func (g *Generator) Index() *Index { return g.index }

// Question builds a question of the given kind about movie.
func (g *Generator) Question(movie domain.MovieRecord, kind domain.Kind) (domain.Question, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.questionLocked(movie, kind)
}

// Round draws n independent (movie, kind) pairs with replacement and builds a
// question for each. The order of the returned round is the presentation order.
func (g *Generator) Round(n int) (domain.Round, error) {
	if n <= 0 {
		n = domain.DefaultRoundSize
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	round := make(domain.Round, 0, n)
	for i := 0; i < n; i++ {
		movie := g.index.Movie(g.rng.Intn(g.index.Len()))
		kind := domain.Kinds[g.rng.Intn(len(domain.Kinds))]
		q, err := g.questionLocked(movie, kind)
		if err != nil {
			return nil, err
		}
		round = append(round, q)
	}
	return round, nil
}

func (g *Generator) questionLocked(movie domain.MovieRecord, kind domain.Kind) (domain.Question, error) {
	template, ok := prompts[kind]
	if !ok {
		return domain.Question{}, fmt.Errorf("unknown question kind %q", kind)
	}
	answer := kind.ValueOf(movie)
	if answer.IsZero() {
		return domain.Question{}, fmt.Errorf("%w: %s of %q", domain.ErrNoValues, kind, movie.Title)
	}

	distractors := g.index.Distractors(g.rng, kind, answer, domain.MaxOptions-1)
	options := make([]domain.Value, 0, len(distractors)+1)
	options = append(options, distractors...)
	options = append(options, answer)
	g.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	return domain.Question{
		Kind:    kind,
		Movie:   movie,
		Prompt:  fmt.Sprintf(template, movie.Title),
		Answer:  answer,
		Options: options,
	}, nil
}
