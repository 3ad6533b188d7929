package registration

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

//go:embed data/templates
var templatesFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// GetTemplatesFS returns the default notification templates.
func GetTemplatesFS() embed.FS {
	return templatesFS
}

func defaultSubjectTemplate() string {
	return mustReadTemplate("data/templates/activation_email_subject.txt")
}

func defaultBodyTemplate() string {
	return mustReadTemplate("data/templates/activation_email.txt")
}

func mustReadTemplate(name string) string {
	b, err := templatesFS.ReadFile(name)
	if err != nil {
		panic("missing embedded template: " + name)
	}
	return string(b)
}
