package capture

import "testing"

func TestCreateTranscriptHandlerFilters(t *testing.T) {
	t.Parallel()

	var got []string
	handler := CreateTranscriptHandler(func(text string, _ int64) {
		got = append(got, text)
	})

	handler(&InboundMessage{Type: MessageTranscript, Text: "first"})
	handler(&InboundMessage{Type: MessageTranscript})
	handler(&InboundMessage{Type: MessageSummary, Summary: "ignored"})
	handler(&InboundMessage{Type: MessageTranscript, Text: "second"})

	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("unexpected transcripts %v", got)
	}
}

func TestCreateSummaryAndTaskHandlersFilter(t *testing.T) {
	t.Parallel()

	var summaries []string
	var taskLists [][]string
	summary := CreateSummaryHandler(func(s string) { summaries = append(summaries, s) })
	tasks := CreateTaskListHandler(func(list []string) { taskLists = append(taskLists, list) })

	summary(&InboundMessage{Type: MessageSummary, Summary: "wrap-up"})
	summary(&InboundMessage{Type: MessageSummary})
	tasks(&InboundMessage{Type: MessageTasks, Tasks: []string{"a", "b"}})
	tasks(&InboundMessage{Type: MessageTasks})

	if len(summaries) != 1 || summaries[0] != "wrap-up" {
		t.Fatalf("unexpected summaries %v", summaries)
	}
	if len(taskLists) != 1 || len(taskLists[0]) != 2 {
		t.Fatalf("unexpected task lists %v", taskLists)
	}
}

func TestCreateMeetingCreatedHandlerFilters(t *testing.T) {
	t.Parallel()

	var ids []string
	handler := CreateMeetingCreatedHandler(func(id string) { ids = append(ids, id) })

	handler(&InboundMessage{Type: MessageMeetingCreated, MeetingID: "mtg-1"})
	handler(&InboundMessage{Type: MessageMeetingCreated})
	handler(&InboundMessage{Type: MessageError, Message: "nope"})

	if len(ids) != 1 || ids[0] != "mtg-1" {
		t.Fatalf("unexpected meeting ids %v", ids)
	}
}
