package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	factgraph "github.com/ritamzico/factgraph"
)

const helpText = `factgraph interactive REPL

Commands:
  new <name>           Create a new empty graph
  load <name> <file>   Load a graph from a JSON snapshot file
  save <name> <file>   Save a graph to a JSON snapshot file
  unload <name>        Remove a loaded graph
  list                 List all loaded graphs
  use <name>           Set the active graph for queries
  help                 Show this help message
  exit / quit          Exit the REPL

Any other input is treated as a Cypher query against the active graph.

Cypher examples:
  MATCH (n:Person) RETURN n
  MATCH (a:Person)-[:KNOWS]->(b:Person) RETURN a, b
  CREATE (n:Person {name: "Ada"})
  MATCH (a), (b) WHERE a.name = "Ada" CREATE (a)-[:KNOWS]->(b)
`

func main() {
	graphs := make(map[string]*factgraph.Graph)
	var active string

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("factgraph — Cypher query and trigger engine over a fact store")
	fmt.Println(`Type "help" for available commands.`)
	fmt.Println()

	for {
		if active != "" {
			fmt.Printf("[%s]> ", active)
		} else {
			fmt.Print("> ")
		}

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "exit", "quit":
			return

		case "help":
			fmt.Print(helpText)

		case "list":
			if len(graphs) == 0 {
				fmt.Println("(no graphs loaded)")
			} else {
				for name := range graphs {
					marker := " "
					if name == active {
						marker = "*"
					}
					fmt.Printf("  %s %s\n", marker, name)
				}
			}

		case "new":
			if len(parts) < 2 {
				fmt.Fprintln(os.Stderr, "usage: new <name>")
				continue
			}
			name := parts[1]
			g, err := factgraph.New()
			if err != nil {
				fmt.Fprintf(os.Stderr, "error creating %q: %v\n", name, err)
				continue
			}
			graphs[name] = g
			if active == "" {
				active = name
			}
			fmt.Printf("created empty graph %q\n", name)

		case "use":
			if len(parts) < 2 {
				fmt.Fprintln(os.Stderr, "usage: use <name>")
				continue
			}
			name := parts[1]
			if _, ok := graphs[name]; !ok {
				fmt.Fprintf(os.Stderr, "no graph named %q\n", name)
				continue
			}
			active = name
			fmt.Printf("active graph set to %q\n", name)

		case "load":
			if len(parts) < 3 {
				fmt.Fprintln(os.Stderr, "usage: load <name> <file>")
				continue
			}
			name, path := parts[1], parts[2]
			g, err := factgraph.LoadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error loading %q: %v\n", path, err)
				continue
			}
			graphs[name] = g
			if active == "" {
				active = name
			}
			fmt.Printf("loaded %q\n", name)

		case "save":
			if len(parts) < 3 {
				fmt.Fprintln(os.Stderr, "usage: save <name> <file>")
				continue
			}
			name, path := parts[1], parts[2]
			g, ok := graphs[name]
			if !ok {
				fmt.Fprintf(os.Stderr, "no graph named %q\n", name)
				continue
			}
			if err := g.SaveFile(path); err != nil {
				fmt.Fprintf(os.Stderr, "error saving %q: %v\n", name, err)
				continue
			}
			fmt.Printf("saved %q to %s\n", name, path)

		case "unload":
			if len(parts) < 2 {
				fmt.Fprintln(os.Stderr, "usage: unload <name>")
				continue
			}
			name := parts[1]
			g, ok := graphs[name]
			if !ok {
				fmt.Fprintf(os.Stderr, "no graph named %q\n", name)
				continue
			}
			g.Close()
			delete(graphs, name)
			if active == name {
				active = ""
			}
			fmt.Printf("unloaded %q\n", name)

		default:
			if active == "" {
				fmt.Fprintln(os.Stderr, "no active graph — use 'new' or 'load' first")
				continue
			}
			res, err := graphs[active].Query(line, nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "query error: %v\n", err)
			} else if res != nil {
				fmt.Println(res.String())
			}
		}
	}
}
