package config

type WorkerKeyStruct struct {
	TabSwitchQueue string
}

var WorkerKey = &WorkerKeyStruct{
	TabSwitchQueue: "tab_switch_queue",
}
