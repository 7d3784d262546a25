package cli

import "quiz-engine/internal/domain"

// DefaultQuizID is the built-in quiz served when no catalog is configured.
const DefaultQuizID = "science"

// builtinQuizzes is the catalog used without Postgres or a catalog directory.
func builtinQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		DefaultQuizID: {
			ID: DefaultQuizID,
			Questions: []domain.Question{
				{
					Text:         "Which organelle produces most of a cell's energy?",
					Topic:        "Biology",
					Options:      []string{"Nucleus", "Mitochondria", "Ribosome", "Golgi apparatus"},
					CorrectIndex: 1,
					Explanation:  "Mitochondria generate ATP through cellular respiration.",
					Difficulty:   domain.Easy,
				},
				{
					Text:         "What molecule carries genetic information in most organisms?",
					Topic:        "Biology",
					Options:      []string{"RNA", "Protein", "DNA", "Lipid"},
					CorrectIndex: 2,
					Explanation:  "DNA stores hereditary information as a double helix.",
					Difficulty:   domain.Easy,
				},
				{
					Text:         "Which blood cells are primarily responsible for fighting infection?",
					Topic:        "Biology",
					Options:      []string{"Red blood cells", "Platelets", "White blood cells", "Plasma cells only"},
					CorrectIndex: 2,
					Explanation:  "White blood cells (leukocytes) are part of the immune system.",
					Difficulty:   domain.Medium,
				},
				{
					Text:         "During which phase of mitosis do sister chromatids separate?",
					Topic:        "Biology",
					Options:      []string{"Prophase", "Metaphase", "Anaphase", "Telophase"},
					CorrectIndex: 2,
					Explanation:  "In anaphase the chromatids are pulled to opposite poles.",
					Difficulty:   domain.Hard,
				},
				{
					Text:         "Which planet is known as the Red Planet?",
					Topic:        "Planets",
					Options:      []string{"Venus", "Mars", "Jupiter", "Mercury"},
					CorrectIndex: 1,
					Explanation:  "Iron oxide on its surface gives Mars its red color.",
					Difficulty:   domain.Easy,
				},
				{
					Text:         "What is the largest planet in our solar system?",
					Topic:        "Planets",
					Options:      []string{"Saturn", "Neptune", "Jupiter", "Earth"},
					CorrectIndex: 2,
					Explanation:  "Jupiter is more than twice as massive as all other planets combined.",
					Difficulty:   domain.Easy,
				},
				{
					Text:         "Which planet has the shortest day?",
					Topic:        "Planets",
					Options:      []string{"Jupiter", "Earth", "Mars", "Uranus"},
					CorrectIndex: 0,
					Explanation:  "Jupiter rotates once in about 10 hours.",
					Difficulty:   domain.Medium,
				},
				{
					Text:         "Which planet rotates on its side with an axial tilt of about 98 degrees?",
					Topic:        "Planets",
					Options:      []string{"Neptune", "Uranus", "Saturn", "Venus"},
					CorrectIndex: 1,
					Explanation:  "Uranus was likely knocked over by an ancient collision.",
					Difficulty:   domain.Hard,
				},
			},
		},
	}
}
