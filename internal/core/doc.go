// Package core turns loosely structured input into requests for a remote text
// classifier, and its loosely structured replies into typed results.
//
// The package has no knowledge of HTTP serving; it can be used by web
// handlers, tools, or tests without modification.
//
// # Pipeline
//
// Training files flow through:
//
//  1. [SourceFor] picks a [RowSource] by extension (.csv, .xlsx, .xls)
//  2. [RowSource.ReadRows] parses the whole file into [RawRow] values
//  3. [NormalizeRows] resolves each row with [ResolveColumns] and drops rows
//     missing a text or a label
//  4. [Service.Retrain] sends the records and maps the reply with
//     [NormalizeTrainingReport]
//
// Free text flows through [SplitParagraphs] and [Service.Predict], whose reply
// is mapped with [NormalizePrediction].
//
// # Column Resolution
//
// Header names are matched against a [ColumnAliasTable] after trimming,
// lowercasing and accent folding. A role with no alias match falls back to
// column position (text first, label second). Alias tables can be extended
// from YAML with [LoadAliasFile].
//
// # Error Handling
//
// Failures wrap the sentinels in errors.go ([ErrUnsupportedFormat],
// [ErrFileRead], [ErrEmptyFile], [ErrNoValidRows], [ErrEmptyInput],
// [ErrShapeMismatch]) or carry a [*ServiceError]. [MapError] turns any of
// them into a [UserMessage] with a support code.
package core
