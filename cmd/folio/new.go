package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/folio-press/folio/scaffold"
)

func runNew(dir string) error {
	name := filepath.Base(dir)
	fmt.Printf("Creating new folio site: %s\n\n", dir)

	created, err := scaffold.Write(dir, scaffold.Data{
		ProjectName: name,
		SiteName:    scaffold.Title(name),
		Date:        time.Now().Format("2006-01-02"),
	})
	if err != nil {
		return err
	}
	for _, p := range created {
		fmt.Printf("  created %s\n", p)
	}

	fmt.Println()
	fmt.Println("Done! Next steps:")
	fmt.Println()
	fmt.Printf("  cd %s\n", dir)
	fmt.Println("  cp .env.example .env")
	fmt.Println("  folio serve")
	fmt.Println()
	fmt.Println("Edit site.yaml for your profile and add markdown files under content/articles.")
	return nil
}
