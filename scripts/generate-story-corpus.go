//go:build ignore

// Package main generates a synthetic story corpus for benchmarking.
// Usage: go run scripts/generate-story-corpus.go -components 1000 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numComponents = flag.Int("components", 1000, "Number of components to generate")
	outputDir     = flag.String("output", "testdata/bench", "Output directory")
	docsEvery     = flag.Int("docs-every", 3, "Attach an MDX page to every Nth component (0 disables)")
	seed          = flag.Int64("seed", 42, "Random seed for reproducibility")
)

const csfTemplate = `import type { Meta, StoryObj } from '@storybook/react';
import { %[1]s } from './%[1]s';

const meta = {
  title: '%[2]s/%[1]s',
  component: %[1]s,
  tags: [%[3]s],
} satisfies Meta<typeof %[1]s>;

export default meta;
type Story = StoryObj<typeof meta>;

%[4]s`

const storyTemplate = `export const %s: Story = {
  args: { label: '%s %s' },
};

`

const mdxTemplate = `import { Meta, Canvas } from '@storybook/blocks';
import * as %[1]sStories from './%[1]s.stories';

<Meta of={%[1]sStories} />

# %[1]s

The %[1]s component for %[2]s.

<Canvas of={%[1]sStories.Default} />
`

var (
	groups     = []string{"Forms", "Layout", "Navigation", "Feedback", "Data", "Overlay"}
	nouns      = []string{"Button", "Card", "Modal", "Table", "Tabs", "Badge", "Avatar", "Toast", "Menu", "Field"}
	variants   = []string{"Primary", "Secondary", "Large", "Small", "Disabled", "Loading", "WithIcon", "Outlined"}
	tags       = []string{"'autodocs'", "'beta'", "'stable'", "'internal'"}
	adjectives = []string{"fast", "accessible", "themed", "compact", "responsive"}
)

func main() {
	flag.Parse()
	rand.Seed(*seed) //nolint:staticcheck // deterministic corpus

	fmt.Printf("Generating %d components in %s\n", *numComponents, *outputDir)

	generated := 0
	for i := 0; i < *numComponents; i++ {
		if err := generateComponent(i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating component %d: %v\n", i, err)
			os.Exit(1)
		}
		generated++
	}

	fmt.Printf("Generated %d components successfully.\n", generated)
}

func randomWord(pool []string) string {
	return pool[rand.Intn(len(pool))]
}

func generateComponent(index int) error {
	group := randomWord(groups)
	name := fmt.Sprintf("%s%d", randomWord(nouns), index)
	dir := filepath.Join(*outputDir, "src", strings.ToLower(group), name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var stories strings.Builder
	stories.WriteString(fmt.Sprintf(storyTemplate, "Default", name, "default"))
	for _, v := range rand.Perm(len(variants))[:1+rand.Intn(4)] {
		stories.WriteString(fmt.Sprintf(storyTemplate, variants[v], name, strings.ToLower(variants[v])))
	}

	csf := fmt.Sprintf(csfTemplate, name, group, randomWord(tags), stories.String())
	if err := os.WriteFile(filepath.Join(dir, name+".stories.tsx"), []byte(csf), 0644); err != nil {
		return err
	}

	if *docsEvery > 0 && index%*docsEvery == 0 {
		mdx := fmt.Sprintf(mdxTemplate, name, randomWord(adjectives)+" interfaces")
		return os.WriteFile(filepath.Join(dir, name+".mdx"), []byte(mdx), 0644)
	}
	return nil
}
