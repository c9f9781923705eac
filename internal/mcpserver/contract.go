package mcpserver

// ImportFormatContract describes the spreadsheet layout accepted by
// client imports.
const ImportFormatContract = `# Valet Client Import Format

Spreadsheets are read from the first sheet (XLSX) or as comma separated
text (CSV, UTF-8, optional BOM).

## Columns

| Position | Field    | Notes                                      |
|----------|----------|--------------------------------------------|
| A        | Nome     | required                                   |
| B        | Telefone | optional, non-digits are stripped          |
| C        | CPF      | required, must pass check-digit validation |

## Rules

1. The first row is treated as a header when its first cell contains
   "nome" or "name" (any case).
2. Blank rows are ignored.
3. Rows missing a name or CPF are skipped (missing_columns).
4. Rows with an invalid CPF are skipped (invalid_cpf).
5. Rows whose CPF already belongs to a client, or to an earlier row in
   the same file, are skipped (duplicate_cpf).
6. Imported clients start with no bicycles.

## Example

` + "```" + `csv
Nome,Telefone,CPF
Maria Silva,(11) 98765-4321,123.456.789-09
João Souza,21988887777,11144477735
` + "```" + `
`
