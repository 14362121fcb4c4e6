package cli

// Exported for tests.

var FormatList = formatList
