package mmc

import "discprobe/internal/scsi/wire"

// GET CONFIGURATION
var (
	configHeaderLayout = wire.NewLayout("feature_header", 8,
		wire.U32("data_length", 0),
		wire.Reserved(4, 2),
		wire.U16("current_profile", 6),
	)
	featureDescriptorLayout = wire.NewLayout("feature_descriptor", 4,
		wire.U16("code", 0),
		wire.ReservedBits(2, 6, 2),
		wire.Bits("version", 2, 2, 4),
		wire.Flag("persistent", 2, 1),
		wire.Flag("current", 2, 0),
		wire.U8("additional_length", 3),
	)
	featureTAOLayout = wire.NewLayout("feature_cd_tao", 4,
		wire.ReservedBits(0, 7, 1),
		wire.Flag("buf", 0, 6),
		wire.ReservedBits(0, 5, 1),
		wire.Flag("rw_raw", 0, 4),
		wire.Flag("rw_pack", 0, 3),
		wire.Flag("test_write", 0, 2),
		wire.Flag("cd_rw", 0, 1),
		wire.Flag("rw_subcode", 0, 0),
		wire.Reserved(1, 1),
		wire.U16("data_types", 2),
	)
	featureSAOLayout = wire.NewLayout("feature_cd_mastering", 4,
		wire.ReservedBits(0, 7, 1),
		wire.Flag("buf", 0, 6),
		wire.Flag("sao", 0, 5),
		wire.Flag("raw_ms", 0, 4),
		wire.Flag("raw", 0, 3),
		wire.Flag("test_write", 0, 2),
		wire.Flag("cd_rw", 0, 1),
		wire.Flag("rw", 0, 0),
		wire.U24("max_cue_length", 1),
	)
	featureDVDRWriteLayout = wire.NewLayout("feature_dvd_r_write", 4,
		wire.ReservedBits(0, 7, 1),
		wire.Flag("buf", 0, 6),
		wire.ReservedBits(0, 4, 2),
		wire.Flag("rdl", 0, 3),
		wire.Flag("test_write", 0, 2),
		wire.Flag("dvd_rw", 0, 1),
		wire.ReservedBits(0, 0, 1),
		wire.Reserved(1, 3),
	)
	featureIncrementalLayout = wire.NewLayout("feature_incremental", 4,
		wire.U16("block_types", 0),
		wire.ReservedBits(2, 3, 5),
		wire.Flag("trio", 2, 2),
		wire.Flag("arsv", 2, 1),
		wire.Flag("buf", 2, 0),
		wire.U8("link_sizes", 3),
	)
	featureCSSLayout = wire.NewLayout("feature_dvd_css", 4,
		wire.Reserved(0, 3),
		wire.U8("css_version", 3),
	)
)

// GET PERFORMANCE
var (
	performanceHeaderLayout = wire.NewLayout("performance_header", 8,
		wire.U32("data_length", 0),
		wire.ReservedBits(4, 2, 6),
		wire.Flag("write", 4, 1),
		wire.Flag("except", 4, 0),
		wire.Reserved(5, 3),
	)
	writeSpeedLayout = wire.NewLayout("write_speed_descriptor", 16,
		wire.ReservedBits(0, 5, 3),
		wire.Bits("wrc", 0, 3, 2),
		wire.Flag("rdd", 0, 2),
		wire.Flag("exact", 0, 1),
		wire.Flag("mrw", 0, 0),
		wire.Reserved(1, 3),
		wire.U32("end_lba", 4),
		wire.U32("read_speed", 8),
		wire.U32("write_speed", 12),
	)
)

// READ DISC INFORMATION
var discInfoLayout = wire.NewLayout("disc_information", 34,
	wire.U16("length", 0),
	wire.ReservedBits(2, 5, 3),
	wire.Flag("erasable", 2, 4),
	wire.Bits("last_session_state", 2, 2, 2),
	wire.Bits("status", 2, 0, 2),
	wire.U8("first_track", 3),
	wire.U8("sessions_lsb", 4),
	wire.U8("first_track_last_session_lsb", 5),
	wire.U8("last_track_last_session_lsb", 6),
	wire.Flag("did_valid", 7, 7),
	wire.Flag("dbc_valid", 7, 6),
	wire.Flag("unrestricted_use", 7, 5),
	wire.Flag("dac_valid", 7, 4),
	wire.ReservedBits(7, 3, 1),
	wire.Flag("dbit", 7, 2),
	wire.Bits("bg_format_status", 7, 0, 2),
	wire.U8("disc_type", 8),
	wire.U8("sessions_msb", 9),
	wire.U8("first_track_last_session_msb", 10),
	wire.U8("last_track_last_session_msb", 11),
	wire.U32("disc_id", 12),
	wire.U32("last_session_leadin", 16),
	wire.U32("last_leadout_start", 20),
	wire.Bytes("bar_code", 24, 8),
	wire.U8("application_code", 32),
	wire.U8("opc_tables", 33),
)

// READ TOC/PMA/ATIP
var (
	tocHeaderLayout = wire.NewLayout("toc_header", 4,
		wire.U16("length", 0),
		wire.U8("first", 2),
		wire.U8("last", 3),
	)
	tocDescriptorLayout = wire.NewLayout("toc_track_descriptor", 8,
		wire.Reserved(0, 1),
		wire.Bits("adr", 1, 4, 4),
		wire.Bits("control", 1, 0, 4),
		wire.U8("track", 2),
		wire.Reserved(3, 1),
		wire.U32("start", 4),
	)
	atipLayout = wire.NewLayout("atip", 28,
		wire.U16("length", 0),
		wire.Reserved(2, 2),
		wire.ReservedBits(4, 7, 1),
		wire.Bits("target_power", 4, 4, 3),
		wire.Flag("ddcd", 4, 3),
		wire.Bits("reference_speed", 4, 0, 3),
		wire.ReservedBits(5, 7, 1),
		wire.Flag("uru", 5, 6),
		wire.ReservedBits(5, 0, 6),
		wire.ReservedBits(6, 7, 1),
		wire.Flag("erasable", 6, 6),
		wire.Bits("sub_type", 6, 3, 3),
		wire.Flag("a1_valid", 6, 2),
		wire.Flag("a2_valid", 6, 1),
		wire.Flag("a3_valid", 6, 0),
		wire.Reserved(7, 1),
		wire.U8("leadin_m", 8),
		wire.U8("leadin_s", 9),
		wire.U8("leadin_f", 10),
		wire.Reserved(11, 1),
		wire.U8("leadout_m", 12),
		wire.U8("leadout_s", 13),
		wire.U8("leadout_f", 14),
		wire.Reserved(15, 1),
		wire.Bytes("a1", 16, 3),
		wire.Reserved(19, 1),
		wire.Bytes("a2", 20, 3),
		wire.Reserved(23, 1),
		wire.Bytes("a3", 24, 3),
		wire.Reserved(27, 1),
	)
)

// READ TRACK INFORMATION
var trackInfoLayout = wire.NewLayout("track_information", 48,
	wire.U16("length", 0),
	wire.U8("track_lsb", 2),
	wire.U8("session_lsb", 3),
	wire.Reserved(4, 1),
	wire.ReservedBits(5, 6, 2),
	wire.Flag("damage", 5, 5),
	wire.Flag("copy", 5, 4),
	wire.Bits("track_mode", 5, 0, 4),
	wire.Flag("rt", 6, 7),
	wire.Flag("blank", 6, 6),
	wire.Flag("packet", 6, 5),
	wire.Flag("fixed_packet", 6, 4),
	wire.Bits("data_mode", 6, 0, 4),
	wire.ReservedBits(7, 2, 6),
	wire.Flag("lra_valid", 7, 1),
	wire.Flag("nwa_valid", 7, 0),
	wire.U32("start", 8),
	wire.U32("nwa", 12),
	wire.U32("free_blocks", 16),
	wire.U32("packet_size", 20),
	wire.U32("size", 24),
	wire.U32("last_recorded", 28),
	wire.U8("track_msb", 32),
	wire.U8("session_msb", 33),
	wire.Reserved(34, 2),
	wire.U32("read_compat", 36),
	wire.U32("next_layer_jump", 40),
	wire.U32("last_layer_jump", 44),
)

// MODE SENSE(10) / MODE SELECT(10)
var (
	modeHeaderLayout = wire.NewLayout("mode_header_10", 8,
		wire.U16("length", 0),
		wire.U8("medium_type", 2),
		wire.U8("device_specific", 3),
		wire.Reserved(4, 2),
		wire.U16("block_descriptor_length", 6),
	)
	writeParamsLayout = wire.NewLayout("page_write_parameters", 52,
		wire.Flag("ps", 0, 7),
		wire.ReservedBits(0, 6, 1),
		wire.Bits("page_code", 0, 0, 6),
		wire.U8("page_length", 1),
		wire.ReservedBits(2, 7, 1),
		wire.Flag("bufe", 2, 6),
		wire.Flag("ls_v", 2, 5),
		wire.Flag("test_write", 2, 4),
		wire.Bits("write_type", 2, 0, 4),
		wire.Bits("multisession", 3, 6, 2),
		wire.Flag("fp", 3, 5),
		wire.Flag("copy", 3, 4),
		wire.Bits("track_mode", 3, 0, 4),
		wire.ReservedBits(4, 4, 4),
		wire.Bits("data_block_type", 4, 0, 4),
		wire.U8("link_size", 5),
		wire.Reserved(6, 1),
		wire.ReservedBits(7, 6, 2),
		wire.Bits("app_code", 7, 0, 6),
		wire.U8("session_format", 8),
		wire.Reserved(9, 1),
		wire.U32("packet_size", 10),
		wire.U16("audio_pause", 14),
		wire.Bytes("mcn", 16, 16),
		wire.Bytes("isrc", 32, 16),
		wire.Bytes("subheader", 48, 4),
	)
	statusPageLayout = wire.NewLayout("page_capabilities_status", 32,
		wire.Flag("ps", 0, 7),
		wire.ReservedBits(0, 6, 1),
		wire.Bits("page_code", 0, 0, 6),
		wire.U8("page_length", 1),
		wire.ReservedBits(2, 6, 2),
		wire.Flag("dvd_ram_read", 2, 5),
		wire.Flag("dvd_r_read", 2, 4),
		wire.Flag("dvd_rom_read", 2, 3),
		wire.Flag("method2", 2, 2),
		wire.Flag("cd_rw_read", 2, 1),
		wire.Flag("cd_r_read", 2, 0),
		wire.ReservedBits(3, 6, 2),
		wire.Flag("dvd_ram_write", 3, 5),
		wire.Flag("dvd_r_write", 3, 4),
		wire.ReservedBits(3, 3, 1),
		wire.Flag("test_write", 3, 2),
		wire.Flag("cd_rw_write", 3, 1),
		wire.Flag("cd_r_write", 3, 0),
		wire.Flag("buf", 4, 7),
		wire.Flag("multisession", 4, 6),
		wire.Flag("mode2_form2", 4, 5),
		wire.Flag("mode2_form1", 4, 4),
		wire.Flag("digital_port2", 4, 3),
		wire.Flag("digital_port1", 4, 2),
		wire.Flag("composite", 4, 1),
		wire.Flag("audio_play", 4, 0),
		wire.U8("cdda_caps", 5),
		wire.Bits("loading_mechanism", 6, 5, 3),
		wire.ReservedBits(6, 4, 1),
		wire.Flag("eject", 6, 3),
		wire.Flag("prevent_jumper", 6, 2),
		wire.Flag("lock_state", 6, 1),
		wire.Flag("lock", 6, 0),
		wire.U8("changer_caps", 7),
		wire.U16("max_read_speed", 8),
		wire.U16("volume_levels", 10),
		wire.U16("buffer_size", 12),
		wire.U16("current_read_speed", 14),
		wire.Reserved(16, 1),
		wire.U8("digital_output", 17),
		wire.U16("max_write_speed", 18),
		wire.U16("current_write_speed", 20),
		wire.U16("copy_management_revision", 22),
		wire.Reserved(24, 3),
		wire.ReservedBits(27, 2, 6),
		wire.Bits("rotation_control", 27, 0, 2),
		wire.U16("current_write_speed_selected", 28),
		wire.U16("write_speed_descriptors", 30),
	)
	pageSpeedLayout = wire.NewLayout("page_write_speed_descriptor", 4,
		wire.Reserved(0, 1),
		wire.ReservedBits(1, 3, 5),
		wire.Bits("rotation_control", 1, 0, 3),
		wire.U16("speed", 2),
	)
)

// READ FORMAT CAPACITIES
var (
	capacityListHeaderLayout = wire.NewLayout("capacity_list_header", 4,
		wire.Reserved(0, 3),
		wire.U8("list_length", 3),
	)
	currentCapacityLayout = wire.NewLayout("current_capacity_descriptor", 8,
		wire.U32("blocks", 0),
		wire.ReservedBits(4, 2, 6),
		wire.Bits("descriptor_type", 4, 0, 2),
		wire.U24("block_length", 5),
	)
	formattableCapacityLayout = wire.NewLayout("formattable_capacity_descriptor", 8,
		wire.U32("blocks", 0),
		wire.Bits("format_type", 4, 2, 6),
		wire.ReservedBits(4, 0, 2),
		wire.U24("type_parameter", 5),
	)
)

// INQUIRY
var inquiryLayout = wire.NewLayout("standard_inquiry", 36,
	wire.Bits("qualifier", 0, 5, 3),
	wire.Bits("device_type", 0, 0, 5),
	wire.Flag("rmb", 1, 7),
	wire.ReservedBits(1, 0, 7),
	wire.U8("version", 2),
	wire.U8("response_format", 3),
	wire.U8("additional_length", 4),
	wire.U8("flags5", 5),
	wire.U8("flags6", 6),
	wire.U8("flags7", 7),
	wire.Bytes("vendor", 8, 8),
	wire.Bytes("product", 16, 16),
	wire.Bytes("revision", 32, 4),
)

// Layouts returns every response layout, for tests and tooling.
func Layouts() []*wire.Layout {
	return []*wire.Layout{
		configHeaderLayout, featureDescriptorLayout, featureTAOLayout, featureSAOLayout,
		featureDVDRWriteLayout, featureIncrementalLayout, featureCSSLayout,
		performanceHeaderLayout, writeSpeedLayout,
		discInfoLayout,
		tocHeaderLayout, tocDescriptorLayout, atipLayout,
		trackInfoLayout,
		modeHeaderLayout, writeParamsLayout, statusPageLayout, pageSpeedLayout,
		capacityListHeaderLayout, currentCapacityLayout, formattableCapacityLayout,
		inquiryLayout,
	}
}
