package main

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/canonical/sqlbind"
)

//go:embed mapper.yaml
var mapperYAML []byte

//go:embed config.yaml
var configYAML []byte

type Person struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Height   int    `db:"height_cm"`
	HomeTown string `db:"home_town"`
}

type Place struct {
	Name       string `db:"town_name"`
	Population int    `db:"population"`
}

func example(ctx context.Context) error {
	cfg, err := sqlbind.ParseConfig(configYAML)
	if err != nil {
		return err
	}
	mapper, err := sqlbind.ParseMapper(mapperYAML, nil)
	if err != nil {
		return err
	}

	sqldb, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return err
	}
	defer sqldb.Close()
	sqldb.SetMaxOpenConns(1)

	exec := sqlbind.NewExecutor(sqldb, cfg, sqlbind.WithLogger(sqlbind.NewLogger(cfg)))

	// Create the tables
	for _, id := range []string{"createPeople", "createPlaces"} {
		if _, err := exec.Update(ctx, mapper.MustStatement(id), nil); err != nil {
			return err
		}
	}

	// Insert the people and places
	var people = []*Person{{Name: "Jim", Height: 150, HomeTown: "Kabul"}, {Name: "Saba", Height: 162, HomeTown: "Berlin"}, {Name: "Dave", Height: 169, HomeTown: "Brasília"}, {Name: "Sophie", Height: 174, HomeTown: "Berlin"}, {Name: "Kiri", Height: 168, HomeTown: "Cape Town"}}
	var places = []Place{{"Kabul", 13000000}, {"Berlin", 3677472}, {"Brasília", 3039444}, {"Cape Town", 4710000}}
	for _, person := range people {
		if _, err := exec.Update(ctx, mapper.MustStatement("insertPerson"), person); err != nil {
			return err
		}
		fmt.Printf("%s was given id %d.\n", person.Name, person.ID)
	}
	for _, place := range places {
		if _, err := exec.Update(ctx, mapper.MustStatement("insertPlace"), place); err != nil {
			return err
		}
	}

	// Find people taller than Jim
	jim := people[0]
	_, err = exec.Query(ctx, mapper.MustStatement("tallerThan"), jim, func(row any) error {
		p := row.(sqlbind.M)
		fmt.Printf("%s is taller than %s.\n", p["name"], jim.Name)
		return nil
	})
	if err != nil {
		return err
	}

	// Find cities with people taller than Jim
	tallCities, err := exec.Query(ctx, mapper.MustStatement("tallerCities"), jim.Height, nil)
	if err != nil {
		return err
	}
	fmt.Printf("This is a list of cities with people taller than Jim: %v\n", tallCities)
	return nil
}

func main() {
	err := example(context.Background())
	if err != nil {
		panic(err)
	}
}
