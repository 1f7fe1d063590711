package model

// DownloadJob is the typed payload carried on the harvest download queue. The crawler
// discovers candidate PDFs and enqueues one job per attachment; download workers fetch
// the URL and stage the bytes as a suggestion.
type DownloadJob struct {
	Code  string         `json:"code"`
	Taken string         `json:"taken"`
	Kind  AttachmentKind `json:"kind"`
	URL   string         `json:"url"`
}

// CourseResult is the API projection of an ExamResult: attachments are rendered as
// absolute URLs when present rather than inlined.
type CourseResult struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Taken    string  `json:"taken"`
	Failures int     `json:"failures"`
	Threes   int     `json:"threes"`
	Fours    int     `json:"fours"`
	Fives    int     `json:"fives"`
	Exam     *string `json:"exam"`
	Solution *string `json:"solution"`
}

// SuggestionPut is the PUT body for attachment submissions: a single base64-encoded
// PDF under the key matching the attachment kind.
type SuggestionPut struct {
	Exam     *string `json:"exam"`
	Solution *string `json:"solution"`
}
