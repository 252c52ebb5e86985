package rag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/profile"
)

// Section identifies the top-level profile section a chunk was derived from.
type Section string

// Known profile sections. Chunks never straddle two of them.
const (
	SectionPersonal   Section = "personal"
	SectionEducation  Section = "education"
	SectionExperience Section = "experience"
	SectionSkills     Section = "skills"
	SectionProjects   Section = "projects"
)

// Chunk bounds. Every chunk stays within [MinChunkChars, MaxChunkChars]
// except when a single logical unit (a short section, a tiny skills block)
// cannot be split or padded further.
const (
	MinChunkChars = 200
	MaxChunkChars = 500

	// chunkOverlap is the number of trailing characters from the previous
	// chunk carried into the next chunk of the same logical unit, to reduce
	// retrieval misses at chunk edges.
	chunkOverlap = 50
)

// Chunk is a bounded text segment tagged with its provenance. Section and
// Subsection are carried from chunk creation onward so no downstream
// component ever needs to re-detect them from the text.
type Chunk struct {
	Text       string
	Section    Section
	Subsection string
}

// ChunkDocument splits a profile document into bounded chunks, section by
// section. Missing optional fields are treated as absent, never as errors;
// an empty document yields an empty slice.
func ChunkDocument(doc *profile.Document) []Chunk {
	if doc.Empty() {
		return nil
	}

	var chunks []Chunk
	chunks = append(chunks, chunkPersonal(doc.Personal)...)
	chunks = append(chunks, chunkEducation(doc.Education)...)
	chunks = append(chunks, chunkExperience(doc.Experience)...)
	chunks = append(chunks, chunkSkills(doc.Skills)...)
	chunks = append(chunks, chunkProjects(doc.Projects)...)
	return chunks
}

// chunkPersonal renders the personal section as a single chunk.
func chunkPersonal(p *profile.Personal) []Chunk {
	if p == nil {
		return nil
	}

	var sb strings.Builder
	if p.Name != "" {
		sb.WriteString(p.Name)
		if p.Location != "" {
			fmt.Fprintf(&sb, " is located in %s", p.Location)
		}
		sb.WriteString(". ")
	}

	var contacts []string
	if p.Email != "" {
		contacts = append(contacts, "email "+p.Email)
	}
	if p.LinkedIn != "" {
		contacts = append(contacts, "LinkedIn "+p.LinkedIn)
	}
	if p.GitHub != "" {
		contacts = append(contacts, "GitHub "+p.GitHub)
	}
	if len(contacts) > 0 {
		fmt.Fprintf(&sb, "Contact: %s. ", strings.Join(contacts, ", "))
	}
	if p.Summary != "" {
		sb.WriteString(p.Summary)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil
	}
	return []Chunk{{Text: text, Section: SectionPersonal, Subsection: "contact_info"}}
}

// chunkEducation renders the education section as a single chunk.
func chunkEducation(e *profile.Education) []Chunk {
	if e == nil {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("Education: ")
	if e.Degree != "" {
		sb.WriteString(e.Degree)
	}
	if e.Institution != "" {
		fmt.Fprintf(&sb, " from %s", e.Institution)
	}
	if e.CGPA != "" {
		fmt.Fprintf(&sb, ", CGPA %s", e.CGPA)
	}
	if e.ExpectedGraduation != "" {
		fmt.Fprintf(&sb, ", graduating in %s", e.ExpectedGraduation)
	}
	sb.WriteString(".")
	if len(e.Coursework) > 0 {
		fmt.Fprintf(&sb, " Relevant coursework includes %s.", strings.Join(e.Coursework, ", "))
	}

	text := strings.TrimSpace(sb.String())
	if text == "Education: ." {
		return nil
	}
	return []Chunk{{Text: text, Section: SectionEducation, Subsection: "academic_background"}}
}

// chunkExperience splits each experience entry into responsibility groups.
// Each chunk starts with the entry header so retrieved chunks are
// self-describing, and adjacent chunks of the same entry share a textual
// overlap.
func chunkExperience(entries []profile.Experience) []Chunk {
	var chunks []Chunk

	for _, exp := range entries {
		header := experienceHeader(exp)
		sub := slugify(exp.Company)
		if sub == "" {
			sub = slugify(exp.Role)
		}

		pieces := make([]string, 0, len(exp.Responsibilities)+1)
		pieces = append(pieces, exp.Responsibilities...)
		if len(exp.Technologies) > 0 {
			pieces = append(pieces, fmt.Sprintf("Technologies used: %s.", strings.Join(exp.Technologies, ", ")))
		}

		chunks = append(chunks, assembleChunks(SectionExperience, sub, header, pieces)...)
	}

	return chunks
}

func experienceHeader(exp profile.Experience) string {
	var sb strings.Builder
	sb.WriteString(exp.Role)
	if exp.Company != "" {
		fmt.Fprintf(&sb, " at %s", exp.Company)
	}
	if exp.Location != "" {
		fmt.Fprintf(&sb, " (%s)", exp.Location)
	}
	if exp.Duration != "" {
		fmt.Fprintf(&sb, ", %s", exp.Duration)
	}
	sb.WriteString(".")
	return sb.String()
}

// chunkSkills emits one chunk per category; categories that would fall below
// the minimum bound are merged with the following small categories.
// Categories are iterated in sorted order so chunking is deterministic
// across runs (required for idempotent re-indexing).
func chunkSkills(skills map[string][]string) []Chunk {
	if len(skills) == 0 {
		return nil
	}

	categories := make([]string, 0, len(skills))
	for cat := range skills {
		if len(skills[cat]) > 0 {
			categories = append(categories, cat)
		}
	}
	sort.Strings(categories)

	var chunks []Chunk
	var pendingText string
	var pendingCats []string

	flush := func() {
		if pendingText == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Text:       pendingText,
			Section:    SectionSkills,
			Subsection: strings.Join(pendingCats, ","),
		})
		pendingText = ""
		pendingCats = nil
	}

	for _, cat := range categories {
		text := fmt.Sprintf("%s skills: %s.", humanizeCategory(cat), strings.Join(skills[cat], ", "))

		if pendingText != "" {
			merged := pendingText + " " + text
			if len(merged) <= MaxChunkChars {
				pendingText = merged
				pendingCats = append(pendingCats, cat)
			} else {
				flush()
				pendingText = text
				pendingCats = []string{cat}
			}
		} else {
			pendingText = text
			pendingCats = []string{cat}
		}

		if len(pendingText) >= MinChunkChars {
			flush()
		}
	}
	// A trailing sub-minimum block is the sole remaining content of the
	// section, so it is emitted as-is.
	flush()

	return chunks
}

// humanizeCategory turns a category key like "ai_ml" into "Ai ml".
func humanizeCategory(cat string) string {
	s := strings.ReplaceAll(cat, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// chunkProjects splits each project into an overview chunk and a details
// chunk. A details chunk that would fall below the minimum bound is folded
// back into the overview when the combined text still fits.
func chunkProjects(projects []profile.Project) []Chunk {
	var chunks []Chunk

	for _, proj := range projects {
		sub := slugify(proj.Name)

		overview := projectOverview(proj)
		details := projectDetails(proj)

		if details != "" && len(details) < MinChunkChars && len(overview)+len(details)+1 <= MaxChunkChars {
			overview = overview + " " + details
			details = ""
		}

		if overview != "" {
			chunks = append(chunks, Chunk{
				Text:       truncateAtSentence(overview, MaxChunkChars),
				Section:    SectionProjects,
				Subsection: sub + "_overview",
			})
		}
		if details != "" {
			text := withOverlap(overview) + " " + details
			chunks = append(chunks, Chunk{
				Text:       truncateAtSentence(text, MaxChunkChars),
				Section:    SectionProjects,
				Subsection: sub + "_details",
			})
		}
	}

	return chunks
}

func projectOverview(proj profile.Project) string {
	var sb strings.Builder
	sb.WriteString(proj.Name)
	if proj.Subtitle != "" {
		fmt.Fprintf(&sb, " (%s)", proj.Subtitle)
	}
	sb.WriteString(": ")
	sb.WriteString(proj.Description)
	return strings.TrimSpace(sb.String())
}

func projectDetails(proj profile.Project) string {
	var sb strings.Builder
	if len(proj.Highlights) > 0 {
		fmt.Fprintf(&sb, "%s highlights: %s ", proj.Name, strings.Join(proj.Highlights, " "))
	}
	if len(proj.Technologies) > 0 {
		fmt.Fprintf(&sb, "Technologies: %s. ", strings.Join(proj.Technologies, ", "))
	}
	var links []string
	if proj.GitHub != "" {
		links = append(links, "GitHub "+proj.GitHub)
	}
	if proj.Demo != "" {
		links = append(links, "demo "+proj.Demo)
	}
	if len(links) > 0 {
		fmt.Fprintf(&sb, "Links: %s.", strings.Join(links, ", "))
	}
	return strings.TrimSpace(sb.String())
}

// assembleChunks groups pieces under a shared header into chunks within the
// size bounds. Oversized single pieces are truncated at a sentence boundary.
// A chunk below the minimum is never emitted next to other chunks: a short
// running chunk is topped up from the next piece before it is flushed, and a
// short trailing group is folded into the previous chunk, truncating when
// the two together would overflow. Only a group whose entire content is
// below the minimum produces a single short chunk.
func assembleChunks(section Section, subsection, header string, pieces []string) []Chunk {
	var chunks []Chunk
	current := header

	flush := func() {
		if strings.TrimSpace(current) == "" || current == header {
			return
		}
		chunks = append(chunks, Chunk{Text: current, Section: section, Subsection: subsection})
	}

	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}

		// Budget for a piece that can never fit alongside the header.
		if len(header)+1+len(piece) > MaxChunkChars {
			piece = truncateAtSentence(piece, MaxChunkChars-len(header)-1)
		}

		candidate := current + " " + piece
		if len(candidate) > MaxChunkChars {
			if len(current) < MinChunkChars {
				// Fill the short chunk from the front of this piece so
				// no emitted chunk falls below the minimum; the rest of
				// the piece carries over to the next chunk.
				room := MaxChunkChars - len(current) - 1
				head := truncateAtSentence(piece, room)
				if len(current)+1+len(head) < MinChunkChars {
					// The nearest sentence boundary is too early; fill
					// to a word boundary instead.
					window := piece[:room]
					if i := strings.LastIndexByte(window, ' '); i > 0 {
						head = strings.TrimSpace(window[:i])
					} else {
						head = window
					}
				}
				if head != "" {
					current = current + " " + head
					piece = strings.TrimSpace(strings.TrimPrefix(piece, head))
				}
			}
			flush()
			// Start the next chunk with the header plus a tail of the
			// previous chunk for context continuity.
			current = header + " " + withOverlap(current)
			if piece == "" {
				continue
			}
			candidate = current + " " + piece
			if len(candidate) > MaxChunkChars {
				// Overlap does not fit together with this piece; drop it.
				candidate = header + " " + piece
			}
		}
		current = candidate
	}

	if current != header && strings.TrimSpace(current) != "" {
		if len(current) < MinChunkChars && len(chunks) > 0 {
			// Fold the short tail into the previous chunk. When the two
			// together overflow, truncation keeps the bound; a short
			// standalone chunk would break it either way.
			last := &chunks[len(chunks)-1]
			tail := strings.TrimSpace(strings.TrimPrefix(current, header))
			merged := last.Text + " " + tail
			if len(merged) > MaxChunkChars {
				merged = truncateAtSentence(merged, MaxChunkChars)
			}
			last.Text = merged
			return chunks
		}
		flush()
	}

	return chunks
}

// withOverlap returns the last chunkOverlap characters of prev, trimmed to a
// word boundary so the overlap never starts mid-word.
func withOverlap(prev string) string {
	if len(prev) <= chunkOverlap {
		return prev
	}
	tail := prev[len(prev)-chunkOverlap:]
	if i := strings.IndexByte(tail, ' '); i >= 0 && i+1 < len(tail) {
		tail = tail[i+1:]
	}
	return tail
}

// truncateAtSentence cuts text at the sentence boundary closest to, but not
// beyond, limit. With no sentence boundary available it falls back to a word
// boundary, then to a hard cut.
func truncateAtSentence(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	window := text[:limit]

	cut := -1
	for _, end := range []string{". ", "! ", "? "} {
		if i := strings.LastIndex(window, end); i > cut {
			cut = i
		}
	}
	if cut > 0 {
		return window[:cut+1]
	}
	if i := strings.LastIndexByte(window, ' '); i > 0 {
		return strings.TrimSpace(window[:i])
	}
	return window
}

// slugify lowercases s and replaces whitespace with underscores, producing a
// stable subsection identifier.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}
