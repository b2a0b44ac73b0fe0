package mcpserver

import "github.com/starford/scrivano/internal/notebook"

// AttributionContract describes the attribution framing applied to every
// generated note, so LLM consumers know which parts of a note are
// boilerplate and which are content.
const AttributionContract = `# Scrivano Note Attribution Contract

Every note generated by the Scrivano pipeline carries a fixed attribution
frame around the LLM-written body:

## Badge (first line of every note)

` + "```" + `markdown
` + notebook.Badge + `
` + "```" + `

## Footer (last lines of every note)

` + "```" + `markdown
` + notebook.Footer + `
` + "```" + `

## Rules

1. The badge is always the FIRST line, followed by a blank line.
2. The footer is always LAST, separated from the body by a blank line.
3. Everything between badge and footer is the generated Markdown body,
   which starts with a single H1 heading.
4. When quoting or summarising a note, strip the badge and footer first.
5. Never present the attribution frame as note content.
`
