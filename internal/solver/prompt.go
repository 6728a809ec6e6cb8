package solver

import (
	"fmt"

	"github.com/abhisek/solveur/internal/topic"
)

// SystemInstruction is sent with every request. It fixes the tutor persona
// and the Markdown/LaTeX output conventions the renderers rely on.
const SystemInstruction = "Tu es un tuteur expert en mathématiques pour les élèves de Terminale S en France. " +
	"Fournis des solutions claires et détaillées, étape par étape, en français. " +
	"Utilise le format Markdown pour la mise en forme. " +
	"Pour les équations mathématiques, utilise la syntaxe LaTeX (par exemple, `$\\frac{a}{b}$` pour les fractions en ligne, " +
	"et `$$\\sum_{i=1}^n i = \\frac{n(n+1)}{2}$$` pour les équations en bloc)."

// ErrorMessage is the only failure text ever shown to the user.
const ErrorMessage = "Désolé, une erreur s'est produite lors de la résolution du problème. Veuillez réessayer."

// Labels for the submit control.
const (
	SubmitLabel = "Résoudre"
	BusyLabel   = "Résolution en cours..."
)

// Placeholder is the hint shown in an empty problem input.
const Placeholder = "Entrez votre problème ici... Par exemple : 'Résoudre l'équation z^2 - 2z + 5 = 0 dans C.'"

// BuildPrompt returns the user prompt for a problem. The problem text is
// used as typed, without trimming.
func BuildPrompt(t topic.Topic, problem string) string {
	return fmt.Sprintf("Résoudre le problème suivant dans le thème \"%s\" :\n\n%s", t, problem)
}
