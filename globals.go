package main

const TableFormat = `# Table file reference

Tables are YAML (.yaml/.yml) or JSON (.json) files.

## Fields
variable: x                  # name of the variable (math)
kind: both                   # sign | variation | both
points: ["-∞", "0", "+∞"]    # N >= 2 boundary points, left to right
rows:                        # sign rows
  - label: x+1
    signs: ["-", "+"]        # N-1 of: + | - | h (hatched)
    marks: ["", "z", ""]     # N of: "" | z (zero) | d (double bar) | t (dashed line)
variation:
  label: f(x)
  arrows: [down, up]         # N-1 of: up | down | hatched
  values: ["+∞", "-2", "+∞"] # N values, one per point
  left_values: ["", "", ""]  # N values, only read at double-bar points
  kinds: [normal, normal, normal] # N of: normal | double
layout:                      # optional, centimetres
  lgt: 2                     # first column width
  espcl: 2.5                 # spacing between points
  deltacl: 0.5               # horizontal padding
caption: Tableau de f        # optional plain text

## Notes
- Unicode symbols (∞ π √ ≤ ≥ ≠ ± × ÷ and Greek letters) become LaTeX macros
- A value containing a backslash is used as LaTeX verbatim
- Empty values render as a blank cell
- marks, left_values and kinds may be omitted
`

const sampleTable = `variable: x
kind: both
points: ["-∞", "-1", "+∞"]
rows:
  - label: x+1
    signs: ["-", "+"]
    marks: ["", "z", ""]
variation:
  label: f(x)
  arrows: [down, up]
  values: ["+∞", "-2", "+∞"]
`
