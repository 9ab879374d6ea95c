package analytics

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"

// RunDataCollector records per-step outcomes of pipeline runs. Reasons may
// carry tool output but never secret values.
type RunDataCollector interface {
	RecordStepSuccess(wfName string, runId string, job string, step string)
	RecordStepFailure(wfName string, runId string, job string, step string, reason string)
}

var runCollector RunDataCollector

func InitDataCollector(config DataCollectorConfig) error {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		c, err := NewLogFileDataCollector(config.FileName)
		if err != nil {
			return err
		}
		runCollector = c
	}
	return nil
}

func RecordStepSuccess(wfName string, runId string, job string, step string) {
	if runCollector == nil {
		return
	}
	runCollector.RecordStepSuccess(wfName, runId, job, step)
}

func RecordStepFailure(wfName string, runId string, job string, step string, reason string) {
	if runCollector == nil {
		return
	}
	runCollector.RecordStepFailure(wfName, runId, job, step, reason)
}
