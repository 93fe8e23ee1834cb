// Package report renders the published content: the daily social post,
// the OG share page behind its link, the weekly intelligence note, and
// the publishers that place the artifacts locally and on S3.
package report
