package mcpserver

// NoteFormatContract describes the Markdown document produced by read_note
// and notes export, and accepted by notes import.
const NoteFormatContract = `# noted Note Format

A note has a title and a Markdown body. Both may be empty.

## Document

` + "```" + `markdown
---
id: 3f2a9c1e-...          # set on export, ignored on import
title: Groceries          # the note title
created: 2025-01-15T09:00:00Z
updated: 2025-01-15T09:02:00Z
---

milk, eggs, bread
` + "```" + `

## Rules

1. The frontmatter block comes first and is fenced by ` + "`---`" + ` lines.
2. Timestamps are RFC 3339 in UTC. ` + "`created`" + ` never changes after creation.
3. When the frontmatter is missing or not valid YAML, the whole file is the
   body and the title is taken from the first ` + "`# `" + ` heading, if any.
4. Titles are at most 500 characters; bodies at most 1 MiB.
5. Export file names are ` + "`<slug>-<first 8 id chars>.md`" + `.

## Tools

- ` + "`create_note`" + ` takes ` + "`title`" + ` and ` + "`content`" + ` as plain strings, not a document.
- ` + "`update_note`" + ` replaces only the fields it is given.
- ` + "`search_notes`" + ` returns ` + "`id`, `title` and `snippet`" + ` per hit.
`
