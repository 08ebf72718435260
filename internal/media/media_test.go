package media

import "testing"

func TestClassifyFormat(t *testing.T) {
	cases := []struct {
		ext  string
		want FormatClass
	}{
		{"cr2", FormatRAW},
		{".NEF", FormatRAW},
		{"jpg", FormatJPEG},
		{"JPEG", FormatJPEG},
		{"png", FormatPNG},
		{"heif", FormatHEIC},
		{"mkv", FormatVideo},
		{"txt", FormatOther},
		{"", FormatOther},
	}
	for _, tc := range cases {
		if got := ClassifyFormat(tc.ext); got != tc.want {
			t.Errorf("ClassifyFormat(%q) = %s, want %s", tc.ext, got, tc.want)
		}
	}
}

func defaultKeywords() FolderKeywords {
	return FolderKeywords{
		Organized:  []string{"photos", "pictures", "vacation", "wedding", "family", "events"},
		Meaningful: []string{"holiday", "trip", "birthday"},
		Backup:     []string{"backup", "old", "copy", "duplicate", "archive"},
		Junk:       []string{"downloads", "temp", "tmp", "cache", "recycle"},
	}
}

func TestClassifyFolder(t *testing.T) {
	kw := defaultKeywords()
	cases := []struct {
		path string
		want FolderClass
	}{
		{"/data/incoming/sdb1/2023/Wedding/a.cr2", FolderOrganized},
		{"/data/incoming/sdb1/Wedding_JPEG/b.jpg", FolderOrganized},
		{"/data/incoming/sdb1/Backup/Old/c.jpg", FolderBackup},
		{"/data/incoming/sdb1/Trip_Notes/d.jpg", FolderMeaningful},
		{"/data/incoming/sdb1/misc/e.jpg", FolderNeutral},
		{"/data/incoming/sdb1/Downloads/f.jpg", FolderJunk},
		{"/data/incoming/sdb1/Backup/2023/g.jpg", FolderBackup},
		{"/data/incoming/sdb1/Photos/temp/h.jpg", FolderJunk},
	}
	for _, tc := range cases {
		if got := ClassifyFolder(tc.path, kw); got != tc.want {
			t.Errorf("ClassifyFolder(%q) = %s, want %s", tc.path, got, tc.want)
		}
	}
}

func TestContainsYear(t *testing.T) {
	cases := []struct {
		segment string
		want    bool
	}{
		{"2023", true},
		{"2023-06 wedding", true},
		{"img_20230101", false}, // embedded in a longer digit run
		{"1850", false},
		{"phone", false},
	}
	for _, tc := range cases {
		if got := containsYear(tc.segment); got != tc.want {
			t.Errorf("containsYear(%q) = %v, want %v", tc.segment, got, tc.want)
		}
	}
}

func TestNormalizeExtension(t *testing.T) {
	if got := NormalizeExtension(".JPG"); got != "jpg" {
		t.Fatalf("NormalizeExtension(.JPG) = %q", got)
	}
}
