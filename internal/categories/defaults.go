package categories

import "github.com/cleared-dev/releve/internal/model"

// Group is a root category of the default catalog with its children.
type Group struct {
	Name     string
	Kind     model.CategoryKind
	Children []string
}

// DefaultCatalog returns the categories seeded into an empty store,
// expense roots first.
func DefaultCatalog() []Group {
	return []Group{
		{Name: "Logement", Kind: model.KindExpense, Children: []string{
			"Loyer/Hypothèque", "Charges", "Électricité/Gaz/Eau", "Internet/Téléphone", "Entretien/Réparations",
		}},
		{Name: "Alimentation", Kind: model.KindExpense, Children: []string{
			"Courses", "Restaurants", "Café/Snacks", "Livraison de repas",
		}},
		{Name: "Transport", Kind: model.KindExpense, Children: []string{
			"Carburant", "Transports en commun", "Parking", "Entretien voiture", "Péages", "Taxi/VTC",
		}},
		{Name: "Santé", Kind: model.KindExpense, Children: []string{
			"Médecin/Dentiste", "Pharmacie", "Lunettes/Lentilles", "Sport/Fitness",
		}},
		{Name: "Loisirs", Kind: model.KindExpense, Children: []string{
			"Cinéma/Théâtre", "Livres/Musique", "Jeux vidéo", "Hobbies", "Abonnements (streaming, etc.)",
		}},
		{Name: "Vêtements et accessoires", Kind: model.KindExpense, Children: []string{
			"Vêtements", "Chaussures", "Bijoux", "Sacs",
		}},
		{Name: "Éducation", Kind: model.KindExpense, Children: []string{
			"Cours", "Formation", "Livres scolaires", "Frais d'inscription",
		}},
		{Name: "Enfants", Kind: model.KindExpense, Children: []string{
			"Garde d'enfants", "École", "Activités", "Jouets",
		}},
		{Name: "Animaux", Kind: model.KindExpense, Children: []string{
			"Nourriture", "Vétérinaire", "Accessoires",
		}},
		{Name: "Beauté et bien-être", Kind: model.KindExpense, Children: []string{
			"Coiffeur", "Cosmétiques", "Massage", "Soins",
		}},
		{Name: "Services et abonnements", Kind: model.KindExpense, Children: []string{
			"Services numériques", "Adhésions",
		}},
		{Name: "Assurances", Kind: model.KindExpense, Children: []string{
			"Assurance auto", "Assurance habitation", "Assurance santé", "Assurance vie",
			"Assurance prêt", "Assurance responsabilité civile", "Autres assurances",
		}},
		{Name: "Impôts et cotisations", Kind: model.KindExpense, Children: []string{
			"Impôts", "Cotisations sociales",
		}},
		{Name: "Cadeaux et dons", Kind: model.KindExpense, Children: []string{
			"Cadeaux", "Charité", "Donations",
		}},
		{Name: "Dépenses exceptionnelles", Kind: model.KindExpense, Children: []string{
			"Voyages", "Gros achats", "Réparations importantes",
		}},

		{Name: "Salaire", Kind: model.KindIncome, Children: []string{
			"Salaire principal", "Primes", "Bonus", "Commissions",
		}},
		{Name: "Revenus professionnels", Kind: model.KindIncome, Children: []string{
			"Freelance", "Activité indépendante", "Honoraires",
		}},
		{Name: "Placements", Kind: model.KindIncome, Children: []string{
			"Intérêts", "Dividendes", "Plus-values",
		}},
		{Name: "Aides sociales", Kind: model.KindIncome, Children: []string{
			"Allocations familiales", "Allocation chômage", "Revenu minimum", "RSA", "Aides au logement", "Autres aides",
		}},
		{Name: "Autres revenus", Kind: model.KindIncome, Children: []string{
			"Remboursements", "Ventes d'objets", "Location",
		}},
		{Name: "Revenus exceptionnels", Kind: model.KindIncome, Children: []string{
			"Héritage", "Bonus exceptionnel",
		}},
	}
}
